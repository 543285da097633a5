package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationRange(t *testing.T) {
	p := NewPagination(3, 10, 95)

	assert.Equal(t, 10, p.TotalPages)
	assert.Equal(t, 21, p.From())
	assert.Equal(t, 30, p.To())
	assert.Equal(t, "21–30 trong tổng số 95", p.RangeText())
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())

	last := NewPagination(10, 10, 95)
	assert.Equal(t, "91–95 trong tổng số 95", last.RangeText())
	assert.False(t, last.HasNext())
}

func TestPaginationEmpty(t *testing.T) {
	p := NewPagination(1, 10, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, "0–0 trong tổng số 0", p.RangeText())
	assert.Nil(t, p.Window())
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())
}

func TestPaginationWindow(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		total int
		want  []int
	}{
		{"fewer pages than window", 2, 30, []int{1, 2, 3}},
		{"start", 1, 95, []int{1, 2, 3, 4, 5}},
		{"middle", 5, 95, []int{3, 4, 5, 6, 7}},
		{"end", 10, 95, []int{6, 7, 8, 9, 10}},
		{"near end", 9, 95, []int{6, 7, 8, 9, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPagination(tt.page, 10, tt.total).Window())
		})
	}
}

func TestPaginationClampsInput(t *testing.T) {
	p := NewPagination(0, 0, -5)
	assert.Equal(t, 1, p.PageIndex)
	assert.Equal(t, 1, p.PageSize)
	assert.Equal(t, 0, p.TotalCount)
}
