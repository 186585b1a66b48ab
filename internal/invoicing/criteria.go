package invoicing

import (
	"strings"
	"time"
)

// DefaultPageSize is the worklist page size on a fresh session and after search or clear.
const DefaultPageSize = 5

// PageSizes lists the page sizes offered by the paginator.
var PageSizes = []int{5, 10, 15}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, size := range PageSizes {
		if size == n {
			return true
		}
	}
	return false
}

// SortField names a sortable worklist column.
type SortField string

const (
	SortByCustomer     SortField = "customerToFullName"
	SortByNo           SortField = "no"
	SortByCreationTime SortField = "creationTime"
	SortByDueDateTime  SortField = "dueDateTime"
	SortByAmount       SortField = "amount"
	SortByStatus       SortField = "status"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection defaults anything but "desc" to ascending.
func ParseSortDirection(raw string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// SortSpec is the client-side ordering applied to the loaded page.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// FilterCriteria is the user-entered worklist state.
type FilterCriteria struct {
	SearchText       string
	Status           StatusCode
	CreationDateFrom *time.Time
	DueDateFrom      *time.Time
	Page             int
	PageSize         int
	Sort             SortSpec
}

// DefaultCriteria returns empty filters on the first page.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		PageSize: DefaultPageSize,
		Sort:     SortSpec{Field: SortByCustomer, Direction: SortAsc},
	}
}

// HasFilters reports whether any filter criterion is set. Paging and sort do not count.
func (c FilterCriteria) HasFilters() bool {
	return strings.TrimSpace(c.SearchText) != "" ||
		c.Status != "" ||
		c.CreationDateFrom != nil ||
		c.DueDateFrom != nil
}

// Offset is the number of rows skipped before the current page.
func (c FilterCriteria) Offset() int {
	return c.Page * c.PageSize
}
