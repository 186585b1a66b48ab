// Package query turns worklist filter criteria into OData-style search parameters.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
)

// DateLayout renders filter date literals: ISO-8601 with milliseconds and a literal Z.
const DateLayout = "2006-01-02T15:04:05.000Z"

const (
	paramTop    = "$top"
	paramSkip   = "$skip"
	paramFilter = "$filter"
)

// Query is the wire form of a search request.
type Query struct {
	Top    int
	Skip   int
	Filter string
}

// Values renders the query parameters. $filter is omitted when no clause is active.
func (q Query) Values() url.Values {
	values := url.Values{}
	values.Set(paramTop, strconv.Itoa(q.Top))
	values.Set(paramSkip, strconv.Itoa(q.Skip))
	if q.Filter != "" {
		values.Set(paramFilter, q.Filter)
	}
	return values
}

// Encode renders the query string in a stable key order.
func (q Query) Encode() string {
	return q.Values().Encode()
}

// Builder builds queries for a fixed display location.
type Builder struct {
	loc *time.Location
}

// Option configures a Builder.
type Option func(*Builder)

// WithLocation sets the location date literals are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.loc = loc
		}
	}
}

// NewBuilder returns a Builder rendering dates in time.Local unless overridden.
func NewBuilder(opts ...Option) Builder {
	b := Builder{loc: time.Local}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Build maps criteria to a Query. It has no side effects.
func Build(criteria invoicing.FilterCriteria) Query {
	return NewBuilder().Build(criteria)
}

// Build maps criteria to a Query.
func (b Builder) Build(criteria invoicing.FilterCriteria) Query {
	clauses := make([]string, 0, 4)
	if criteria.CreationDateFrom != nil {
		clauses = append(clauses, b.dayRange("creationTime", *criteria.CreationDateFrom))
	}
	if criteria.DueDateFrom != nil {
		clauses = append(clauses, b.dayRange("dueDateTime", *criteria.DueDateFrom))
	}
	if criteria.Status != "" {
		clauses = append(clauses, "status eq "+literal(string(criteria.Status)))
	}
	if search := strings.TrimSpace(criteria.SearchText); search != "" {
		term := literal(strings.ToLower(search))
		clauses = append(clauses, "(contains(tolower(customerToFullName),"+term+") or contains(tolower(no),"+term+"))")
	}
	return Query{
		Top:    criteria.PageSize,
		Skip:   criteria.Offset(),
		Filter: strings.Join(clauses, " and "),
	}
}

// dayRange expands d into the half-open interval [d, d+1day).
func (b Builder) dayRange(field string, d time.Time) string {
	start := b.FormatDate(d)
	end := b.FormatDate(d.AddDate(0, 0, 1))
	return "(" + field + " ge " + start + " and " + field + " lt " + end + ")"
}

// FormatDate normalises d to UTC and renders it back in the builder's location.
func (b Builder) FormatDate(d time.Time) string {
	return d.UTC().In(b.loc).Format(DateLayout)
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
