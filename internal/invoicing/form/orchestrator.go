package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/lineitems"
)

// ErrNoInvoice is returned when hydration finds nothing for the id.
var ErrNoInvoice = errors.New("form: invoice not found")

// Gateway is the slice of the invoice API the form needs.
type Gateway interface {
	GetInvoice(ctx context.Context, id string) (*invoicing.Invoice, error)
	CreateInvoice(ctx context.Context, payload invoicing.InvoicePayload) (*invoicing.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, payload invoicing.InvoicePayload) (*invoicing.Invoice, error)
}

// Orchestrator owns one draft from creation or hydration until submit.
type Orchestrator struct {
	gateway Gateway
	schema  *Schema
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location

	mu     sync.Mutex
	header Header
	editor *lineitems.Editor
	totals lineitems.Totals
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLocation sets the zone wire dates are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithSchema shares a prebuilt schema between orchestrators.
func WithSchema(schema *Schema) Option {
	return func(o *Orchestrator) {
		if schema != nil {
			o.schema = schema
		}
	}
}

// NewOrchestrator returns an orchestrator holding a fresh draft.
func NewOrchestrator(gateway Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway: gateway,
		logger:  slog.Default(),
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.schema == nil {
		o.schema = NewSchema()
	}
	o.editor = lineitems.NewEditor(
		lineitems.WithClock(o.now),
		lineitems.WithRowValidator(o.schema.ValidateRow),
		lineitems.WithListener(lineitems.TotalsFunc(func(t lineitems.Totals) { o.totals = t })),
	)
	o.New()
	return o
}

// New discards the current draft and starts an empty one in Draft status with one row.
func (o *Orchestrator) New() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.header = Header{
		Status:       invoicing.StatusDraft,
		CreationTime: o.now(),
	}
	o.editor.Load(nil)
}

// Hydrate fetches invoice id and replaces the draft with it. Hydrating the same id twice
// yields the same draft.
func (o *Orchestrator) Hydrate(ctx context.Context, id string) error {
	inv, err := o.gateway.GetInvoice(ctx, id)
	if err != nil {
		return fmt.Errorf("form: hydrate %s: %w", id, err)
	}
	if inv == nil {
		return fmt.Errorf("%w: %s", ErrNoInvoice, id)
	}
	d := FromInvoice(*inv)
	if d.ID == "" {
		d.ID = id
	}
	o.Replace(d)
	return nil
}

// Replace swaps the whole draft, typically with a decoded form post.
func (o *Orchestrator) Replace(d Draft) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.header = d.Header
	o.editor.Load(d.LineItems)
}

// Draft returns a snapshot of the draft.
func (o *Orchestrator) Draft() Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Draft{Header: o.header, LineItems: o.editor.Items()}
}

// Totals returns the totals derived from the current rows.
func (o *Orchestrator) Totals() lineitems.Totals {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totals
}

// RowErrors returns per-row validation state aligned with row positions.
func (o *Orchestrator) RowErrors() []lineitems.RowErrors {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.editor.RowErrors()
}

// AddRow appends a default line and returns its index.
func (o *Orchestrator) AddRow() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.editor.AddRow()
}

// RemoveRow deletes line i. The last line cannot be removed.
func (o *Orchestrator) RemoveRow(i int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.editor.RemoveRow(i)
}

// EditField updates one field of line i.
func (o *Orchestrator) EditField(i int, field lineitems.Field, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.editor.EditField(i, field, value)
}

// Validate checks the draft and returns nil or a *ValidationError.
func (o *Orchestrator) Validate() error {
	d := o.Draft()
	if fields := o.schema.Validate(d); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Submit validates the draft and, when valid, creates or updates it through the gateway.
// An invalid draft is left untouched and the gateway is not called.
func (o *Orchestrator) Submit(ctx context.Context) (*invoicing.Invoice, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	d := o.Draft()
	payload := BuildPayload(d, o.now(), o.loc)

	var (
		saved *invoicing.Invoice
		err   error
	)
	if d.Editing() {
		saved, err = o.gateway.UpdateInvoice(ctx, d.ID, payload)
	} else {
		saved, err = o.gateway.CreateInvoice(ctx, payload)
	}
	if err != nil {
		o.logger.Error("submit invoice", slog.String("id", d.ID), slog.Any("error", err))
		return nil, fmt.Errorf("form: submit: %w", err)
	}
	o.logger.Info("invoice saved", slog.String("id", saved.ID), slog.Bool("update", d.Editing()))
	return saved, nil
}
