// Package worklist drives the invoice list: filter criteria, paging, client-side sort and
// the fetch cycle against the invoice API.
package worklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/query"
	"github.com/odyssey-erp/invoice-worklist/internal/shared"
)

var (
	// ErrInvalidPageSize is returned for page sizes outside invoicing.PageSizes.
	ErrInvalidPageSize = errors.New("worklist: invalid page size")
	// ErrInvalidPage is returned for negative page indexes.
	ErrInvalidPage = errors.New("worklist: invalid page")
	// ErrInvalidSortField is returned when sorting by a column that has no comparator.
	ErrInvalidSortField = errors.New("worklist: invalid sort field")
)

// Searcher is the slice of the gateway the controller needs.
type Searcher interface {
	SearchInvoices(ctx context.Context, q query.Query) (invoicing.InvoicePage, error)
}

// View is an immutable snapshot of the worklist for rendering.
type View struct {
	Criteria      invoicing.FilterCriteria
	Rows          []invoicing.InvoiceSummary
	TotalRows     int
	HasMore       bool
	FiltersActive bool
	Loading       bool
	Err           error
	Pagination    shared.Pagination
}

// Controller owns one user's worklist state. All methods are safe for concurrent use; the
// lock is never held across a gateway call.
type Controller struct {
	searcher        Searcher
	builder         query.Builder
	logger          *slog.Logger
	debouncer       *Debouncer
	stale           prometheus.Counter
	defaultPageSize int

	mu            sync.Mutex
	criteria      invoicing.FilterCriteria
	lastPage      invoicing.InvoicePage
	hasMore       bool
	filtersActive bool
	loading       bool
	err           error
	generation    uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBuilder sets the query builder, typically to pin the date location.
func WithBuilder(builder query.Builder) Option {
	return func(c *Controller) {
		c.builder = builder
	}
}

// WithDefaultPageSize overrides invoicing.DefaultPageSize when size is allowed.
func WithDefaultPageSize(size int) Option {
	return func(c *Controller) {
		if invoicing.ValidPageSize(size) {
			c.defaultPageSize = size
		}
	}
}

// WithSearchDebounce sets the typing quiet period.
func WithSearchDebounce(delay time.Duration) Option {
	return func(c *Controller) {
		c.debouncer = NewDebouncer(delay)
	}
}

// WithStaleCounter counts discarded out-of-order responses.
func WithStaleCounter(counter prometheus.Counter) Option {
	return func(c *Controller) {
		c.stale = counter
	}
}

// NewController builds a controller with default criteria. It does not fetch; call Load.
func NewController(searcher Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher:        searcher,
		builder:         query.NewBuilder(),
		logger:          slog.Default(),
		defaultPageSize: invoicing.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.debouncer == nil {
		c.debouncer = NewDebouncer(DefaultSearchDebounce)
	}
	c.criteria = invoicing.DefaultCriteria()
	c.criteria.PageSize = c.defaultPageSize
	return c
}

// Load fetches the current page.
func (c *Controller) Load(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

// SetPage moves to page n.
func (c *Controller) SetPage(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPage, n)
	}
	c.mu.Lock()
	c.criteria.Page = n
	c.mu.Unlock()
	return c.Load(ctx)
}

// SetPageSize changes rows per page and returns to the first page.
func (c *Controller) SetPageSize(ctx context.Context, size int) error {
	if !invoicing.ValidPageSize(size) {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	c.mu.Lock()
	c.criteria.PageSize = size
	c.criteria.Page = 0
	c.mu.Unlock()
	return c.Load(ctx)
}

// SetSearchText edits the search text without fetching.
func (c *Controller) SetSearchText(text string) {
	c.mu.Lock()
	c.criteria.SearchText = text
	c.mu.Unlock()
}

// SetStatus edits the status filter without fetching. Empty clears it.
func (c *Controller) SetStatus(status invoicing.StatusCode) {
	c.mu.Lock()
	c.criteria.Status = status
	c.mu.Unlock()
}

// SetCreationDate edits the creation date filter without fetching. Nil clears it.
func (c *Controller) SetCreationDate(day *time.Time) {
	c.mu.Lock()
	c.criteria.CreationDateFrom = cloneTime(day)
	c.mu.Unlock()
}

// SetDueDate edits the due date filter without fetching. Nil clears it.
func (c *Controller) SetDueDate(day *time.Time) {
	c.mu.Lock()
	c.criteria.DueDateFrom = cloneTime(day)
	c.mu.Unlock()
}

// TypeSearchText records a keystroke and applies the search once typing pauses.
func (c *Controller) TypeSearchText(ctx context.Context, text string) {
	c.SetSearchText(text)
	detached := context.WithoutCancel(ctx)
	c.debouncer.Trigger(func() {
		if err := c.ApplySearch(detached); err != nil {
			c.logger.Debug("debounced search failed", slog.Any("error", err))
		}
	})
}

// ApplySearch runs the current criteria from the first page.
func (c *Controller) ApplySearch(ctx context.Context) error {
	c.mu.Lock()
	c.criteria.Page = 0
	c.criteria.PageSize = c.defaultPageSize
	c.filtersActive = c.criteria.HasFilters()
	c.mu.Unlock()
	return c.Load(ctx)
}

// ClearFilters resets every filter and reloads. The sort order is kept.
func (c *Controller) ClearFilters(ctx context.Context) error {
	c.debouncer.Stop()
	c.mu.Lock()
	sort := c.criteria.Sort
	c.criteria = invoicing.DefaultCriteria()
	c.criteria.PageSize = c.defaultPageSize
	c.criteria.Sort = sort
	c.filtersActive = false
	c.mu.Unlock()
	return c.Load(ctx)
}

// ForceRefresh reloads after a mutation such as a delete. With resetPage the list returns to
// the first page; otherwise the current page is kept unless it has become empty, in which
// case the last non-empty page is shown.
func (c *Controller) ForceRefresh(ctx context.Context, resetPage bool) error {
	c.mu.Lock()
	if resetPage {
		c.criteria.Page = 0
		c.criteria.PageSize = c.defaultPageSize
		c.filtersActive = c.filtersActive || c.criteria.HasFilters()
	}
	c.mu.Unlock()

	page, err := c.refresh(ctx)
	if err != nil || resetPage || page == nil {
		return err
	}
	if !page.Empty() || page.TotalRows <= 0 {
		return nil
	}

	c.mu.Lock()
	if c.criteria.Page == 0 {
		c.mu.Unlock()
		return nil
	}
	last := (page.TotalRows+c.criteria.PageSize-1)/c.criteria.PageSize - 1
	if last >= c.criteria.Page {
		last = c.criteria.Page - 1
	}
	c.criteria.Page = max(last, 0)
	c.mu.Unlock()
	return c.Load(ctx)
}

// SetSort orders the loaded rows. It never fetches.
func (c *Controller) SetSort(field invoicing.SortField, direction invoicing.SortDirection) error {
	if !SortableField(field) {
		return fmt.Errorf("%w: %s", ErrInvalidSortField, field)
	}
	c.mu.Lock()
	c.criteria.Sort = invoicing.SortSpec{Field: field, Direction: direction}
	c.mu.Unlock()
	return nil
}

// ToggleSort sorts by field ascending, or flips to descending when field is already
// sorted ascending.
func (c *Controller) ToggleSort(field invoicing.SortField) error {
	if !SortableField(field) {
		return fmt.Errorf("%w: %s", ErrInvalidSortField, field)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	direction := invoicing.SortAsc
	if c.criteria.Sort.Field == field && c.criteria.Sort.Direction == invoicing.SortAsc {
		direction = invoicing.SortDesc
	}
	c.criteria.Sort = invoicing.SortSpec{Field: field, Direction: direction}
	return nil
}

// Criteria returns a copy of the current criteria.
func (c *Controller) Criteria() invoicing.FilterCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyCriteria(c.criteria)
}

// View snapshots the worklist with rows in display order.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	criteria := copyCriteria(c.criteria)
	return View{
		Criteria:      criteria,
		Rows:          Sort(c.lastPage.Rows, criteria.Sort),
		TotalRows:     c.lastPage.TotalRows,
		HasMore:       c.hasMore,
		FiltersActive: c.filtersActive,
		Loading:       c.loading,
		Err:           c.err,
		Pagination:    shared.NewPagination(criteria.Page+1, criteria.PageSize, c.lastPage.TotalRows),
	}
}

// Close cancels a pending debounced search.
func (c *Controller) Close() {
	c.debouncer.Stop()
}

// refresh fetches the page for the current criteria. It returns the page when the response
// was applied, or nil when a newer refresh superseded it.
func (c *Controller) refresh(ctx context.Context) (*invoicing.InvoicePage, error) {
	c.mu.Lock()
	c.generation++
	generation := c.generation
	criteria := copyCriteria(c.criteria)
	c.loading = true
	c.mu.Unlock()

	page, err := c.searcher.SearchInvoices(ctx, c.builder.Build(criteria))

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		c.logger.Debug("discarding stale worklist response",
			slog.Uint64("generation", generation),
			slog.Uint64("latest", c.generation))
		if c.stale != nil {
			c.stale.Inc()
		}
		return nil, nil
	}
	c.loading = false
	if err != nil {
		c.err = err
		c.logger.Error("worklist search failed",
			slog.Int("page", criteria.Page),
			slog.Int("page_size", criteria.PageSize),
			slog.Any("error", err))
		return nil, fmt.Errorf("worklist: search: %w", err)
	}
	c.err = nil
	c.lastPage = page
	c.hasMore = len(page.Rows) == criteria.PageSize
	return &page, nil
}

func copyCriteria(in invoicing.FilterCriteria) invoicing.FilterCriteria {
	out := in
	out.CreationDateFrom = cloneTime(in.CreationDateFrom)
	out.DueDateFrom = cloneTime(in.DueDateFrom)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
