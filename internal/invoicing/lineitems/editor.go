// Package lineitems maintains the editable rows of an invoice draft and their totals.
package lineitems

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrLastRow is returned when removing the only remaining row.
	ErrLastRow = errors.New("lineitems: an invoice needs at least one line")
	// ErrIndexOutOfRange is returned for row indexes outside the collection.
	ErrIndexOutOfRange = errors.New("lineitems: row index out of range")
	// ErrUnknownField is returned when editing a field the row does not have.
	ErrUnknownField = errors.New("lineitems: unknown field")
	// ErrInvalidNumber is returned when a quantity or price does not parse.
	ErrInvalidNumber = errors.New("lineitems: invalid number")
)

// Field names an editable column of a row.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCategoryID  Field = "categoryId"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unitPrice"
)

// LineItem is one billable row.
type LineItem struct {
	Title          string
	Description    string
	CategoryID     string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	CreatedAt      time.Time
	LastModifiedAt time.Time
}

// LineTotal is quantity times unit price.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Totals are the amounts derived from the rows.
type Totals struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// TotalsListener receives totals after every mutation.
type TotalsListener interface {
	TotalsChanged(Totals)
}

// TotalsFunc adapts a function to TotalsListener.
type TotalsFunc func(Totals)

// TotalsChanged calls f.
func (f TotalsFunc) TotalsChanged(t Totals) { f(t) }

// RowErrors maps a field name to its message for one row.
type RowErrors map[string]string

// RowValidator checks one row. It returns nil or an empty map when the row is valid.
type RowValidator func(item LineItem) RowErrors

// Editor owns an ordered collection of rows addressed by position. It is not safe for
// concurrent use; the form orchestrator serialises access.
type Editor struct {
	items     []LineItem
	totals    Totals
	rowErrors []RowErrors
	listener  TotalsListener
	validate  RowValidator
	now       func() time.Time
}

// Option configures an Editor.
type Option func(*Editor)

// WithListener registers the totals listener.
func WithListener(l TotalsListener) Option {
	return func(e *Editor) { e.listener = l }
}

// WithRowValidator sets the per-row rules.
func WithRowValidator(v RowValidator) Option {
	return func(e *Editor) { e.validate = v }
}

// WithClock overrides time.Now for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEditor returns an editor holding a single default row.
func NewEditor(opts ...Option) *Editor {
	e := &Editor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.items = []LineItem{e.defaultRow()}
	e.Recompute()
	return e
}

// Load replaces every row. An empty slice leaves one default row.
func (e *Editor) Load(items []LineItem) {
	if len(items) == 0 {
		e.items = []LineItem{e.defaultRow()}
	} else {
		e.items = slices.Clone(items)
	}
	e.Recompute()
}

// Len is the number of rows.
func (e *Editor) Len() int {
	return len(e.items)
}

// Items returns a copy of the rows.
func (e *Editor) Items() []LineItem {
	return slices.Clone(e.items)
}

// AddRow appends a default row and returns its index.
func (e *Editor) AddRow() int {
	e.items = append(e.items, e.defaultRow())
	e.Recompute()
	return len(e.items) - 1
}

// RemoveRow deletes row i. Removing the only row fails and leaves the rows untouched.
func (e *Editor) RemoveRow(i int) error {
	if i < 0 || i >= len(e.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if len(e.items) == 1 {
		return ErrLastRow
	}
	e.items = slices.Delete(e.items, i, i+1)
	e.Recompute()
	return nil
}

// EditField sets one field of row i from its text form. Numbers that do not parse are
// rejected without touching the row; an empty number is zero.
func (e *Editor) EditField(i int, field Field, value string) error {
	if i < 0 || i >= len(e.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	item := e.items[i]
	switch field {
	case FieldTitle:
		item.Title = value
	case FieldDescription:
		item.Description = value
	case FieldCategoryID:
		item.CategoryID = value
	case FieldQuantity, FieldUnitPrice:
		n, err := parseNumber(value)
		if err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidNumber, field, value)
		}
		if field == FieldQuantity {
			item.Quantity = n
		} else {
			item.UnitPrice = n
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	item.LastModifiedAt = e.now()
	e.items[i] = item
	e.Recompute()
	return nil
}

// Recompute derives totals and row errors from the current rows and notifies the listener.
// Every mutation calls it before returning.
func (e *Editor) Recompute() {
	subtotal := decimal.Zero
	for _, item := range e.items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	e.totals = Totals{Subtotal: subtotal, Total: subtotal}

	e.rowErrors = make([]RowErrors, len(e.items))
	if e.validate != nil {
		for i, item := range e.items {
			if errs := e.validate(item); len(errs) > 0 {
				e.rowErrors[i] = errs
			}
		}
	}

	if e.listener != nil {
		e.listener.TotalsChanged(e.totals)
	}
}

// Totals returns the latest derived totals.
func (e *Editor) Totals() Totals {
	return e.totals
}

// RowErrors returns per-row errors aligned with the current row positions. Valid rows have a
// nil entry.
func (e *Editor) RowErrors() []RowErrors {
	return slices.Clone(e.rowErrors)
}

// Valid reports whether every row passes the row validator.
func (e *Editor) Valid() bool {
	for _, errs := range e.rowErrors {
		if len(errs) > 0 {
			return false
		}
	}
	return true
}

func (e *Editor) defaultRow() LineItem {
	now := e.now()
	return LineItem{
		Quantity:       decimal.NewFromInt(1),
		UnitPrice:      decimal.Zero,
		CreatedAt:      now,
		LastModifiedAt: now,
	}
}

func parseNumber(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
