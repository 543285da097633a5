package paging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
)

type row struct {
	ID string `json:"id"`
}

type statusFilter struct {
	Status string
}

func TestLoadBuildsState(t *testing.T) {
	var got Query[statusFilter]
	fetch := func(ctx context.Context, q Query[statusFilter]) (Page[row], error) {
		got = q
		return Page[row]{Items: []row{{ID: "a"}, {ID: "b"}}, TotalCount: 95}, nil
	}

	r := New[row](fetch, statusFilter{Status: "Active"}, Options{PageSize: 10, PageIndex: 3, Search: " lan "})
	defer r.Close()

	st := r.Load(context.Background())

	assert.Equal(t, 3, got.PageIndex)
	assert.Equal(t, "lan", got.Search)
	assert.Equal(t, "Active", got.Filter.Status)
	assert.Equal(t, "lan", got.ListQuery().SearchTerm)

	assert.Len(t, st.Data, 2)
	assert.False(t, st.IsLoading)
	assert.Equal(t, 10, st.Pagination.TotalPages)
	assert.Equal(t, "21–30 trong tổng số 95", st.RangeText)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, st.Window)
}

func TestLoadErrorKeepsData(t *testing.T) {
	fail := false
	fetch := func(ctx context.Context, q Query[struct{}]) (Page[row], error) {
		if fail {
			return Page[row]{}, errors.New("Không thể tải danh sách")
		}
		return Page[row]{Items: []row{{ID: "a"}}, TotalCount: 1}, nil
	}

	r := New[row](fetch, struct{}{}, Options{})
	defer r.Close()

	r.Load(context.Background())
	fail = true
	st := r.Load(context.Background())

	assert.Equal(t, "Không thể tải danh sách", st.Error)
	assert.Len(t, st.Data, 1)
	assert.False(t, st.IsLoading)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	fetch := func(ctx context.Context, q Query[struct{}]) (Page[row], error) {
		if q.PageIndex == 1 {
			// ignores cancellation so its result arrives late
			<-release
			return Page[row]{Items: []row{{ID: "stale"}}, TotalCount: 30}, nil
		}
		return Page[row]{Items: []row{{ID: "fresh"}}, TotalCount: 30}, nil
	}

	r := New[row](fetch, struct{}{}, Options{})
	defer r.Close()

	r.Reload()
	r.SetPage(2)
	require.Eventually(t, func() bool {
		st := r.State()
		return len(st.Data) == 1 && st.Data[0].ID == "fresh"
	}, time.Second, 5*time.Millisecond)

	close(release)
	r.Wait()

	st := r.State()
	require.Len(t, st.Data, 1)
	assert.Equal(t, "fresh", st.Data[0].ID)
	assert.Equal(t, 2, st.Pagination.PageIndex)
}

func TestNewFetchCancelsPrevious(t *testing.T) {
	started := make(chan context.Context, 2)
	fetch := func(ctx context.Context, q Query[struct{}]) (Page[row], error) {
		started <- ctx
		if q.PageIndex == 1 {
			<-ctx.Done()
			return Page[row]{}, ctx.Err()
		}
		return Page[row]{TotalCount: 0}, nil
	}

	r := New[row](fetch, struct{}{}, Options{})
	defer r.Close()

	r.Reload()
	first := <-started
	r.SetPage(2)
	<-started
	r.Wait()

	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.Empty(t, r.State().Error)
}

func TestSearchIsDebounced(t *testing.T) {
	var mu sync.Mutex
	var terms []string
	fetch := func(ctx context.Context, q Query[struct{}]) (Page[row], error) {
		mu.Lock()
		terms = append(terms, q.Search)
		mu.Unlock()
		return Page[row]{}, nil
	}

	r := New[row](fetch, struct{}{}, Options{Debounce: 30 * time.Millisecond})
	defer r.Close()

	r.SetPage(4)
	r.Wait()
	r.SetSearch("a")
	r.SetSearch("an")
	r.SetSearch("anh ")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(terms) == 2
	}, time.Second, 5*time.Millisecond)
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "anh"}, terms)
	assert.Equal(t, 1, r.Query().PageIndex)
}

func TestSearchNowFetchesFirstPage(t *testing.T) {
	fetch := func(ctx context.Context, q Query[struct{}]) (Page[row], error) {
		return Page[row]{Items: []row{{ID: q.Search}}, TotalCount: 1}, nil
	}

	r := New[row](fetch, struct{}{}, Options{PageIndex: 5})
	defer r.Close()

	st := r.SearchNow(context.Background(), " Minh ")
	require.Len(t, st.Data, 1)
	assert.Equal(t, "Minh", st.Data[0].ID)
	assert.Equal(t, 1, st.Pagination.PageIndex)
}

func TestOnChange(t *testing.T) {
	fetch := func(ctx context.Context, q Query[struct{}]) (Page[row], error) {
		return Page[row]{TotalCount: 12}, nil
	}
	r := New[row](fetch, struct{}{}, Options{})
	defer r.Close()

	var seen []State[row]
	r.OnChange(func(st State[row]) { seen = append(seen, st) })
	r.Load(context.Background())

	require.Len(t, seen, 1)
	assert.Equal(t, 2, seen[0].Pagination.TotalPages)
}

func TestClosedResourceStopsFetching(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, q Query[struct{}]) (Page[row], error) {
		calls++
		return Page[row]{}, nil
	}

	r := New[row](fetch, struct{}{}, Options{Debounce: 10 * time.Millisecond})
	r.Close()

	r.Reload()
	r.SetSearch("x")
	r.Load(context.Background())
	time.Sleep(30 * time.Millisecond)
	r.Wait()

	assert.Zero(t, calls)
}

func TestSetFilterResetsPage(t *testing.T) {
	fetch := func(ctx context.Context, q Query[statusFilter]) (Page[row], error) {
		return Page[row]{TotalCount: 100}, nil
	}
	r := New[row](fetch, statusFilter{}, Options{PageIndex: 4})
	defer r.Close()

	r.SetFilter(statusFilter{Status: "Completed"})
	r.Wait()

	q := r.Query()
	assert.Equal(t, 1, q.PageIndex)
	assert.Equal(t, "Completed", q.Filter.Status)
}

func TestFromEnvelope(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		page, err := FromEnvelope[row](apiclient.Envelope{
			Success:    true,
			Data:       json.RawMessage(`[{"id":"a"},{"id":"b"}]`),
			TotalCount: 42,
			TotalPages: 5,
		})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 42, page.TotalCount)
		assert.Equal(t, 5, page.TotalPages)
	})

	t.Run("array without count", func(t *testing.T) {
		page, err := FromEnvelope[row](apiclient.Envelope{Success: true, Data: json.RawMessage(`[{"id":"a"}]`)})
		require.NoError(t, err)
		assert.Equal(t, 1, page.TotalCount)
	})

	t.Run("wrapped", func(t *testing.T) {
		page, err := FromEnvelope[row](apiclient.Envelope{
			Success: true,
			Data:    json.RawMessage(`{"items":[{"id":"a"}],"totalCount":11,"totalPages":2}`),
		})
		require.NoError(t, err)
		assert.Equal(t, []row{{ID: "a"}}, page.Items)
		assert.Equal(t, 11, page.TotalCount)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("failure", func(t *testing.T) {
		_, err := FromEnvelope[row](apiclient.Envelope{Message: "Không thể tải"})
		assert.EqualError(t, err, "Không thể tải")
	})
}

func TestDebouncerZeroDelayRunsInline(t *testing.T) {
	d := NewDebouncer(0)
	ran := false
	d.Trigger(func() { ran = true })
	assert.True(t, ran)

	d.Stop()
	ran = false
	d.Trigger(func() { ran = true })
	assert.False(t, ran)
}
