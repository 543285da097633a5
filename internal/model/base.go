package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// DateLayout is the wire format of date-only query parameters.
const DateLayout = "2006-01-02"

// DateTime accepts the timestamp layouts the upstream API emits, with or without zone.
type DateTime struct {
	time.Time
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
}

var wireLocation atomic.Pointer[time.Location]

// SetLocation sets the zone that zone-less timestamps are read in. It is
// called once at startup with the school's zone.
func SetLocation(loc *time.Location) { wireLocation.Store(loc) }

// Location is the zone set by SetLocation, time.Local until then.
func Location() *time.Location {
	if loc := wireLocation.Load(); loc != nil {
		return loc
	}
	return time.Local
}

func NewDateTime(t time.Time) DateTime { return DateTime{Time: t} }

// ParseDateTime parses any supported layout. Values without a zone are read
// in loc, or in Location when loc is nil.
func ParseDateTime(s string, loc *time.Location) (DateTime, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = Location()
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return DateTime{Time: t}, nil
		}
	}
	return DateTime{}, fmt.Errorf("unsupported time format %q", s)
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDateTime(s, nil)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02T15:04:05"))
}

// ListQuery holds the pagination and filter fields list pages send upstream.
type ListQuery struct {
	PageIndex  int       `json:"pageIndex" form:"pageIndex"`
	PageSize   int       `json:"pageSize" form:"pageSize"`
	SearchTerm string    `json:"searchTerm" form:"searchTerm"`
	OrderBy    string    `json:"orderBy" form:"orderBy"`
	Status     string    `json:"status" form:"status"`
	FromDate   time.Time `json:"fromDate" form:"fromDate" time_format:"2006-01-02"`
	ToDate     time.Time `json:"toDate" form:"toDate" time_format:"2006-01-02"`
}

const (
	DefaultPageIndex = 1
	DefaultPageSize  = 10
)

// Normalize applies default paging values.
func (q ListQuery) Normalize() ListQuery {
	if q.PageIndex < 1 {
		q.PageIndex = DefaultPageIndex
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	q.SearchTerm = strings.TrimSpace(q.SearchTerm)
	return q
}

// Values encodes the query with the upstream parameter names.
func (q ListQuery) Values() url.Values {
	q = q.Normalize()
	v := url.Values{}
	v.Set("pageIndex", strconv.Itoa(q.PageIndex))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.SearchTerm != "" {
		v.Set("searchTerm", q.SearchTerm)
	}
	if q.OrderBy != "" {
		v.Set("orderBy", q.OrderBy)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if !q.FromDate.IsZero() {
		v.Set("fromDate", q.FromDate.Format(DateLayout))
	}
	if !q.ToDate.IsZero() {
		v.Set("toDate", q.ToDate.Format(DateLayout))
	}
	return v
}
