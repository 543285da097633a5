package model

import (
	"fmt"
	"strings"
)

// Period is a named daily administration window.
type Period string

const (
	PeriodMorning   Period = "Buổi sáng"
	PeriodNoon      Period = "Buổi trưa"
	PeriodAfternoon Period = "Buổi chiều"
	PeriodEvening   Period = "Buổi tối"
	// PeriodEmergency is the makeup/ad-hoc slot; it has no hour restriction.
	PeriodEmergency Period = "Emergency"
)

// DailyPeriods lists the scheduled periods in day order.
var DailyPeriods = []Period{PeriodMorning, PeriodNoon, PeriodAfternoon, PeriodEvening}

func (p Period) IsEmergency() bool { return p == PeriodEmergency }

func (p Period) Valid() bool {
	if p == PeriodEmergency {
		return true
	}
	for _, d := range DailyPeriods {
		if p == d {
			return true
		}
	}
	return false
}

// Label is the lower-cased name used inside sentences.
func (p Period) Label() string {
	if p == PeriodEmergency {
		return "khẩn cấp"
	}
	return strings.ToLower(string(p))
}

// PeriodRange is the [Start, End) clock-hour window of a period.
type PeriodRange struct {
	Start int `mapstructure:"start" json:"start"`
	End   int `mapstructure:"end" json:"end"`
}

func (r PeriodRange) Contains(hour int) bool {
	return hour >= r.Start && hour < r.End
}

func (r PeriodRange) String() string {
	return fmt.Sprintf("%02d:00 - %02d:00", r.Start, r.End)
}

// PeriodRanges maps each scheduled period to its hour window.
type PeriodRanges map[Period]PeriodRange

// DefaultPeriodRanges returns the standard school-day windows.
func DefaultPeriodRanges() PeriodRanges {
	return PeriodRanges{
		PeriodMorning:   {Start: 6, End: 11},
		PeriodNoon:      {Start: 11, End: 14},
		PeriodAfternoon: {Start: 14, End: 18},
		PeriodEvening:   {Start: 18, End: 22},
	}
}

// Lookup returns the window of p. Emergency and unknown periods are unrestricted.
func (r PeriodRanges) Lookup(p Period) (PeriodRange, bool) {
	if p.IsEmergency() {
		return PeriodRange{}, false
	}
	pr, ok := r[p]
	return pr, ok
}

// Validate checks that every daily period has a sane window.
func (r PeriodRanges) Validate() error {
	for _, p := range DailyPeriods {
		pr, ok := r[p]
		if !ok {
			return fmt.Errorf("missing hour range for %q", p)
		}
		if pr.Start < 0 || pr.End > 24 || pr.Start >= pr.End {
			return fmt.Errorf("invalid hour range %d-%d for %q", pr.Start, pr.End, p)
		}
	}
	return nil
}
