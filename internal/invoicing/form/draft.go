// Package form binds an invoice draft, its line items and the validation schema to
// submission against the invoice API.
package form

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/lineitems"
)

// Header is the draft without its line items.
type Header struct {
	ID                 string
	No                 string
	CustomerFromID     string
	CustomerToID       string
	CustomerToFullName string
	Shipping           decimal.Decimal
	Discount           decimal.Decimal
	Taxes              decimal.Decimal
	Status             invoicing.StatusCode
	CreationTime       time.Time
	DueDateTime        time.Time
}

// Draft is an invoice being composed or edited.
type Draft struct {
	Header
	LineItems []lineitems.LineItem
}

// Editing reports whether the draft targets an existing invoice.
func (d Draft) Editing() bool {
	return d.ID != ""
}

// ValidationError carries field-scoped messages keyed by dotted path.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return fmt.Sprintf("form: invalid fields: %s", strings.Join(keys, ", "))
}

// FromInvoice derives a draft from a fetched invoice. The mapping is deterministic.
func FromInvoice(inv invoicing.Invoice) Draft {
	d := Draft{Header: Header{
		ID:                 inv.ID,
		No:                 inv.No,
		CustomerFromID:     inv.CustomerFromID,
		CustomerToID:       inv.CustomerToID,
		CustomerToFullName: inv.CustomerToFullName,
		Shipping:           inv.Shipping,
		Discount:           inv.Discount,
		Taxes:              inv.Taxes,
		Status:             inv.Status,
		CreationTime:       inv.CreationTime.Time,
		DueDateTime:        inv.DueDateTime.Time,
	}}
	d.LineItems = make([]lineitems.LineItem, 0, len(inv.Details))
	for _, detail := range inv.Details {
		d.LineItems = append(d.LineItems, lineitems.LineItem{
			Title:          detail.Title,
			Description:    detail.Description,
			CategoryID:     detail.CategoryID,
			Quantity:       detail.Quantity,
			UnitPrice:      detail.Price,
			CreatedAt:      parseDetailTime(detail.CreationTime),
			LastModifiedAt: parseDetailTime(detail.LastModificationTime),
		})
	}
	return d
}

// BuildPayload normalises a draft for the wire: dates use invoicing.WireLayout in loc,
// every line is stamped as modified at now, and the invoice number and creation time are
// left to the API.
func BuildPayload(d Draft, now time.Time, loc *time.Location) invoicing.InvoicePayload {
	if loc == nil {
		loc = time.Local
	}
	payload := invoicing.InvoicePayload{
		CustomerFromID:     d.CustomerFromID,
		CustomerToID:       d.CustomerToID,
		CustomerToFullName: d.CustomerToFullName,
		Shipping:           number(d.Shipping),
		Discount:           number(d.Discount),
		Taxes:              number(d.Taxes),
		Status:             d.Status,
		DueDateTime:        wireTime(d.DueDateTime, loc),
		Details:            make([]invoicing.DetailPayload, 0, len(d.LineItems)),
	}
	for _, item := range d.LineItems {
		created := item.CreatedAt
		if created.IsZero() {
			created = now
		}
		payload.Details = append(payload.Details, invoicing.DetailPayload{
			Title:                item.Title,
			Description:          item.Description,
			CategoryID:           item.CategoryID,
			Quantity:             number(item.Quantity),
			Price:                number(item.UnitPrice),
			CreationTime:         wireTime(created, loc),
			LastModificationTime: wireTime(now, loc),
		})
	}
	return payload
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func wireTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(invoicing.WireLayout)
}

func parseDetailTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := invoicing.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}
	}
	return ts.Time
}
