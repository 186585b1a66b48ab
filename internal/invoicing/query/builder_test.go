package query

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
)

var minusFive = time.FixedZone("UTC-5", -5*3600)

func criteria(mutate func(*invoicing.FilterCriteria)) invoicing.FilterCriteria {
	c := invoicing.DefaultCriteria()
	if mutate != nil {
		mutate(&c)
	}
	return c
}

func TestBuildWithoutCriteriaOmitsFilter(t *testing.T) {
	q := Build(criteria(nil))

	require.Equal(t, 5, q.Top)
	require.Equal(t, 0, q.Skip)
	require.Empty(t, q.Filter)
	_, present := q.Values()[paramFilter]
	require.False(t, present)
	require.Equal(t, "%24skip=0&%24top=5", q.Encode())
}

func TestBuildIgnoresPagingAndSortForFilter(t *testing.T) {
	q := Build(criteria(func(c *invoicing.FilterCriteria) {
		c.Page = 3
		c.PageSize = 15
		c.Sort = invoicing.SortSpec{Field: invoicing.SortByAmount, Direction: invoicing.SortDesc}
		c.SearchText = "   "
	}))

	require.Equal(t, 15, q.Top)
	require.Equal(t, 45, q.Skip)
	require.Empty(t, q.Filter)
}

func TestBuildSearchScenario(t *testing.T) {
	q := Build(criteria(func(c *invoicing.FilterCriteria) {
		c.SearchText = "john"
	}))

	require.Equal(t, "(contains(tolower(customerToFullName),'john') or contains(tolower(no),'john'))", q.Filter)
	require.Equal(t, 5, q.Top)
	require.Equal(t, 0, q.Skip)
}

func TestBuildLowercasesAndEscapesSearch(t *testing.T) {
	q := Build(criteria(func(c *invoicing.FilterCriteria) {
		c.SearchText = "O'Brien"
	}))

	require.Equal(t, "(contains(tolower(customerToFullName),'o''brien') or contains(tolower(no),'o''brien'))", q.Filter)
}

func TestBuildClauseOrder(t *testing.T) {
	created := time.Date(2024, 3, 10, 0, 0, 0, 0, minusFive)
	due := time.Date(2024, 4, 1, 0, 0, 0, 0, minusFive)
	b := NewBuilder(WithLocation(minusFive))

	q := b.Build(criteria(func(c *invoicing.FilterCriteria) {
		c.SearchText = "INV-0001"
		c.Status = invoicing.StatusPaid
		c.CreationDateFrom = &created
		c.DueDateFrom = &due
	}))

	want := "(creationTime ge 2024-03-10T00:00:00.000Z and creationTime lt 2024-03-11T00:00:00.000Z)" +
		" and (dueDateTime ge 2024-04-01T00:00:00.000Z and dueDateTime lt 2024-04-02T00:00:00.000Z)" +
		" and status eq 'Paid'" +
		" and (contains(tolower(customerToFullName),'inv-0001') or contains(tolower(no),'inv-0001'))"
	require.Equal(t, want, q.Filter)
}

func TestBuildSingleClauseHasNoStrayJoiner(t *testing.T) {
	q := Build(criteria(func(c *invoicing.FilterCriteria) {
		c.Status = invoicing.StatusOverdue
	}))

	require.Equal(t, "status eq 'Overdue'", q.Filter)
}

func TestFormatDateConvertsThroughUTC(t *testing.T) {
	b := NewBuilder(WithLocation(minusFive))

	// A picker date at local midnight renders as the same wall clock.
	require.Equal(t, "2023-01-01T00:00:00.000Z", b.FormatDate(time.Date(2023, 1, 1, 0, 0, 0, 0, minusFive)))
	// A UTC instant early in the day belongs to the previous local day.
	require.Equal(t, "2022-12-31T22:00:00.000Z", b.FormatDate(time.Date(2023, 1, 1, 3, 0, 0, 0, time.UTC)))

	utc := NewBuilder(WithLocation(time.UTC))
	require.Equal(t, "2023-01-01T05:00:00.000Z", utc.FormatDate(time.Date(2023, 1, 1, 0, 0, 0, 0, minusFive)))
}

var rangePattern = regexp.MustCompile(`creationTime ge (\S+) and creationTime lt (\S+)\)`)

func TestDayRangeIsHalfOpen(t *testing.T) {
	b := NewBuilder(WithLocation(minusFive))
	days := []time.Time{
		time.Date(2024, 2, 28, 0, 0, 0, 0, minusFive),
		time.Date(2024, 2, 29, 0, 0, 0, 0, minusFive),
		time.Date(2024, 12, 31, 0, 0, 0, 0, minusFive),
	}
	for _, d := range days {
		d := d
		t.Run(d.Format("2006-01-02"), func(t *testing.T) {
			q := b.Build(criteria(func(c *invoicing.FilterCriteria) { c.CreationDateFrom = &d }))
			match := rangePattern.FindStringSubmatch(q.Filter)
			require.Len(t, match, 3)

			start, err := time.ParseInLocation(DateLayout, match[1], minusFive)
			require.NoError(t, err)
			end, err := time.ParseInLocation(DateLayout, match[2], minusFive)
			require.NoError(t, err)

			inRange := func(ts time.Time) bool { return !ts.Before(start) && ts.Before(end) }
			require.True(t, inRange(d))
			require.True(t, inRange(d.Add(24*time.Hour-time.Millisecond)))
			require.False(t, inRange(d.AddDate(0, 0, 1)))
			require.False(t, inRange(d.Add(-time.Millisecond)))
		})
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	created := time.Date(2024, 5, 5, 0, 0, 0, 0, minusFive)
	c := criteria(func(c *invoicing.FilterCriteria) {
		c.SearchText = "acme"
		c.Status = invoicing.StatusPending
		c.CreationDateFrom = &created
		c.Page = 2
	})
	b := NewBuilder(WithLocation(minusFive))

	first := b.Build(c)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, b.Build(c))
		require.Equal(t, first.Encode(), b.Build(c).Encode())
	}
}
