package paging

import (
	"fmt"
	"math"
)

// MaxWindow is the most page buttons a pager shows at once.
const MaxWindow = 5

// Pagination is the pager state of a list page. PageIndex is 1-based.
type Pagination struct {
	PageIndex  int `json:"pageIndex"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// NewPagination derives TotalPages from the count.
func NewPagination(pageIndex, pageSize, totalCount int) Pagination {
	if pageSize < 1 {
		pageSize = 1
	}
	if pageIndex < 1 {
		pageIndex = 1
	}
	if totalCount < 0 {
		totalCount = 0
	}
	return Pagination{
		PageIndex:  pageIndex,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(pageSize))),
	}
}

// From is the 1-based position of the first row on the page, 0 when empty.
func (p Pagination) From() int {
	if p.TotalCount == 0 {
		return 0
	}
	return (p.PageIndex-1)*p.PageSize + 1
}

func (p Pagination) To() int {
	to := p.PageIndex * p.PageSize
	if to > p.TotalCount {
		to = p.TotalCount
	}
	return to
}

// RangeText renders e.g. "21–30 trong tổng số 95".
func (p Pagination) RangeText() string {
	return fmt.Sprintf("%d–%d trong tổng số %d", p.From(), p.To(), p.TotalCount)
}

func (p Pagination) HasPrev() bool { return p.PageIndex > 1 }

func (p Pagination) HasNext() bool { return p.PageIndex < p.TotalPages }

// Window returns the page numbers to render: all of them up to MaxWindow,
// otherwise MaxWindow pages centered on the current one and clamped to the ends.
func (p Pagination) Window() []int {
	if p.TotalPages <= 0 {
		return nil
	}
	if p.TotalPages <= MaxWindow {
		return seq(1, p.TotalPages)
	}

	start := p.PageIndex - MaxWindow/2
	if start < 1 {
		start = 1
	}
	end := start + MaxWindow - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = end - MaxWindow + 1
	}
	return seq(start, end)
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
