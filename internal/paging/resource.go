package paging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

// DefaultSearchDebounce is the delay between the last keystroke and the search.
const DefaultSearchDebounce = 800 * time.Millisecond

// Query is what a fetch receives: pager position, search term and the
// page-specific filter.
type Query[F any] struct {
	PageIndex int
	PageSize  int
	Search    string
	Filter    F
}

// ListQuery maps the common fields onto the upstream query shape.
func (q Query[F]) ListQuery() model.ListQuery {
	return model.ListQuery{
		PageIndex:  q.PageIndex,
		PageSize:   q.PageSize,
		SearchTerm: q.Search,
	}
}

// Page is one fetched page.
type Page[T any] struct {
	Items      []T
	TotalCount int
	TotalPages int
}

type FetchFunc[T, F any] func(ctx context.Context, q Query[F]) (Page[T], error)

// State is the uniform result every list page renders.
type State[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
	RangeText  string     `json:"rangeText"`
	Window     []int      `json:"window"`
	IsLoading  bool       `json:"isLoading"`
	Error      string     `json:"error,omitempty"`
	// Generation identifies the fetch that produced the state.
	Generation uint64 `json:"-"`
}

type Options struct {
	PageSize int
	// PageIndex and Search set the starting position without fetching.
	PageIndex int
	Search    string
	Debounce  time.Duration
	// Context bounds every fetch; Close cancels it.
	Context context.Context
}

// Resource is a paged list with search, filters and stale-result guarding:
// each fetch gets a generation and a context, starting a new one cancels the
// previous one, and a result whose generation is not the latest is dropped.
type Resource[T, F any] struct {
	fetch    FetchFunc[T, F]
	debounce *Debouncer
	base     context.Context
	stop     context.CancelFunc

	mu       sync.Mutex
	query    Query[F]
	pending  string
	state    State[T]
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
	onChange func(State[T])
	inflight sync.WaitGroup
}

func New[T, F any](fetch FetchFunc[T, F], filter F, opts Options) *Resource[T, F] {
	if opts.PageSize < 1 {
		opts.PageSize = model.DefaultPageSize
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	base, stop := context.WithCancel(opts.Context)
	q := Query[F]{
		PageIndex: max(opts.PageIndex, 1),
		PageSize:  opts.PageSize,
		Search:    strings.TrimSpace(opts.Search),
		Filter:    filter,
	}
	return &Resource[T, F]{
		fetch:    fetch,
		debounce: NewDebouncer(opts.Debounce),
		base:     base,
		stop:     stop,
		query:    q,
		state:    State[T]{Pagination: NewPagination(q.PageIndex, opts.PageSize, 0)},
	}
}

// OnChange registers a callback run after every applied state change.
func (r *Resource[T, F]) OnChange(fn func(State[T])) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Resource[T, F]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resource[T, F]) Query() Query[F] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query
}

// SetSearch records the typed term and fetches page 1 once typing pauses.
func (r *Resource[T, F]) SetSearch(term string) {
	term = strings.TrimSpace(term)
	r.mu.Lock()
	r.pending = term
	r.mu.Unlock()

	r.debounce.Trigger(func() {
		r.mu.Lock()
		if r.closed || r.pending != term {
			r.mu.Unlock()
			return
		}
		r.query.Search = term
		r.query.PageIndex = 1
		r.mu.Unlock()
		r.Reload()
	})
}

// SearchNow applies term without waiting and fetches page 1 on the caller's
// goroutine. A pending debounced search is dropped.
func (r *Resource[T, F]) SearchNow(ctx context.Context, term string) State[T] {
	term = strings.TrimSpace(term)
	r.mu.Lock()
	r.pending = term
	r.query.Search = term
	r.query.PageIndex = 1
	r.mu.Unlock()
	return r.Load(ctx)
}

// SetFilter replaces the filter and goes back to page 1.
func (r *Resource[T, F]) SetFilter(f F) {
	r.mu.Lock()
	r.query.Filter = f
	r.query.PageIndex = 1
	r.mu.Unlock()
	r.Reload()
}

func (r *Resource[T, F]) SetPage(pageIndex int) {
	if pageIndex < 1 {
		pageIndex = 1
	}
	r.mu.Lock()
	r.query.PageIndex = pageIndex
	r.mu.Unlock()
	r.Reload()
}

func (r *Resource[T, F]) SetPageSize(size int) {
	if size < 1 {
		return
	}
	r.mu.Lock()
	r.query.PageSize = size
	r.query.PageIndex = 1
	r.mu.Unlock()
	r.Reload()
}

// Reload starts a fetch in the background for the current query.
func (r *Resource[T, F]) Reload() {
	gen, ctx, q, ok := r.begin(r.base)
	if !ok {
		return
	}
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		page, err := r.fetch(ctx, q)
		r.finish(gen, q, page, err)
	}()
}

// Load fetches the current query on the caller's goroutine and returns the
// resulting state. Handlers use it for a one-shot render.
func (r *Resource[T, F]) Load(ctx context.Context) State[T] {
	gen, fctx, q, ok := r.begin(ctx)
	if !ok {
		return r.State()
	}
	page, err := r.fetch(fctx, q)
	r.finish(gen, q, page, err)
	return r.State()
}

// Wait blocks until background fetches started so far have finished.
func (r *Resource[T, F]) Wait() {
	r.inflight.Wait()
}

// Close cancels pending and in-flight work. Later results are discarded.
func (r *Resource[T, F]) Close() {
	r.debounce.Stop()
	r.mu.Lock()
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	r.stop()
}

func (r *Resource[T, F]) begin(parent context.Context) (uint64, context.Context, Query[F], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, nil, Query[F]{}, false
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	ctx, cancel := context.WithCancel(parent)
	if parent != r.base {
		// a caller-supplied context must still be cancelled by Close
		stop := context.AfterFunc(r.base, cancel)
		inner := cancel
		cancel = func() { stop(); inner() }
	}
	r.cancel = cancel
	r.state.IsLoading = true
	r.state.Error = ""
	return r.gen, ctx, r.query, true
}

func (r *Resource[T, F]) finish(gen uint64, q Query[F], page Page[T], err error) {
	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	st := State[T]{Generation: gen}
	switch {
	case err != nil:
		st = r.state
		st.Generation = gen
		st.IsLoading = false
		st.Error = err.Error()
		if errors.Is(err, context.Canceled) {
			st.Error = ""
		}
	default:
		p := NewPagination(q.PageIndex, q.PageSize, page.TotalCount)
		if page.TotalPages > 0 {
			p.TotalPages = page.TotalPages
		}
		st.Data = page.Items
		st.Pagination = p
		st.RangeText = p.RangeText()
		st.Window = p.Window()
	}
	r.state = st
	cb := r.onChange
	r.mu.Unlock()

	if cb != nil {
		cb(st)
	}
}

// FromEnvelope decodes a list envelope into a Page. Data may be the item
// array itself or an object carrying items and counts.
func FromEnvelope[T any](env apiclient.Envelope) (Page[T], error) {
	if err := env.Err(); err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{TotalCount: env.TotalCount, TotalPages: env.TotalPages}
	data := strings.TrimSpace(string(env.Data))
	if data == "" || data == "null" {
		return page, nil
	}

	if strings.HasPrefix(data, "[") {
		if err := env.Decode(&page.Items); err != nil {
			return Page[T]{}, err
		}
		if page.TotalCount == 0 {
			page.TotalCount = len(page.Items)
		}
		return page, nil
	}

	var wrapped struct {
		Items      []T `json:"items"`
		TotalCount int `json:"totalCount"`
		TotalPages int `json:"totalPages"`
	}
	if err := json.Unmarshal(env.Data, &wrapped); err != nil {
		return Page[T]{}, err
	}
	page.Items = wrapped.Items
	if wrapped.TotalCount > 0 {
		page.TotalCount = wrapped.TotalCount
	}
	if wrapped.TotalPages > 0 {
		page.TotalPages = wrapped.TotalPages
	}
	return page, nil
}
