package worklist

import (
	"cmp"
	"slices"
	"strings"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
)

type comparator func(a, b invoicing.InvoiceSummary) int

var comparators = map[invoicing.SortField]comparator{
	invoicing.SortByCustomer: func(a, b invoicing.InvoiceSummary) int {
		return cmp.Compare(a.CustomerName, b.CustomerName)
	},
	invoicing.SortByNo: func(a, b invoicing.InvoiceSummary) int {
		return cmp.Compare(a.No, b.No)
	},
	invoicing.SortByCreationTime: func(a, b invoicing.InvoiceSummary) int {
		return a.CreationTime.Compare(b.CreationTime.Time)
	},
	invoicing.SortByDueDateTime: func(a, b invoicing.InvoiceSummary) int {
		return a.DueDateTime.Compare(b.DueDateTime.Time)
	},
	invoicing.SortByAmount: func(a, b invoicing.InvoiceSummary) int {
		return a.Amount.Cmp(b.Amount)
	},
	invoicing.SortByStatus: func(a, b invoicing.InvoiceSummary) int {
		return strings.Compare(string(a.Status), string(b.Status))
	},
}

// SortableField reports whether rows can be ordered by field.
func SortableField(field invoicing.SortField) bool {
	_, ok := comparators[field]
	return ok
}

// Sort returns a stably ordered copy of rows. Unknown fields keep the server order.
func Sort(rows []invoicing.InvoiceSummary, spec invoicing.SortSpec) []invoicing.InvoiceSummary {
	out := slices.Clone(rows)
	compare, ok := comparators[spec.Field]
	if !ok {
		return out
	}
	if spec.Direction == invoicing.SortDesc {
		slices.SortStableFunc(out, func(a, b invoicing.InvoiceSummary) int { return compare(b, a) })
		return out
	}
	slices.SortStableFunc(out, compare)
	return out
}
