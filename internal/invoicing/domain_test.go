package invoicing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	require.Equal(t, StatusPaid, ParseStatus("paid"))
	require.Equal(t, StatusOverdue, ParseStatus(" Overdue "))
	require.Equal(t, StatusUnknown, ParseStatus("Cancelled"))
	require.Equal(t, StatusCode(""), ParseStatus("  "))
}

func TestStatusLabelsAndStylesAreDistinct(t *testing.T) {
	labels := map[string]StatusCode{}
	for _, code := range Statuses() {
		require.True(t, code.Valid())
		label := code.Label()
		require.NotEmpty(t, label)
		prev, dup := labels[label]
		require.False(t, dup, "label %q shared by %s and %s", label, prev, code)
		labels[label] = code
		require.NotEmpty(t, code.Style().Color)
	}
	require.Equal(t, "Pagado", StatusPaid.Label())
	require.Equal(t, StatusStyle{Color: "#1b9535", Background: "#dbf6e5"}, StatusPaid.Style())
}

func TestUnknownStatusFallsBack(t *testing.T) {
	bogus := StatusCode("Archived")
	require.False(t, bogus.Valid())
	require.Equal(t, "Desconocido", bogus.Label())
	require.Equal(t, StatusUnknown.Style(), bogus.Style())

	var row InvoiceSummary
	require.NoError(t, json.Unmarshal([]byte(`{"status":"Archived"}`), &row))
	require.Equal(t, StatusUnknown, row.Status)
}

func TestTimestampLayouts(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{`"2024-03-15T10:20:30Z"`, time.Date(2024, 3, 15, 10, 20, 30, 0, time.UTC)},
		{`"2024-03-15T10:20:30.125"`, time.Date(2024, 3, 15, 10, 20, 30, 125e6, time.UTC)},
		{`"2024-03-15T10:20:30"`, time.Date(2024, 3, 15, 10, 20, 30, 0, time.UTC)},
		{`"2024-03-15"`, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{`"2024-03-15T05:20:30-05:00"`, time.Date(2024, 3, 15, 10, 20, 30, 0, time.UTC)},
	}
	for _, tc := range cases {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &ts), tc.raw)
		require.True(t, tc.want.Equal(ts.Time), tc.raw)
	}

	var empty Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	require.True(t, empty.IsZero())
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	require.True(t, empty.IsZero())

	var bad Timestamp
	require.Error(t, json.Unmarshal([]byte(`"15/03/2024"`), &bad))
}

func TestTimestampMarshal(t *testing.T) {
	out, err := json.Marshal(NewTimestamp(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, `"2024-03-15T10:00:00Z"`, string(out))

	out, err = json.Marshal(Timestamp{})
	require.NoError(t, err)
	require.Equal(t, `null`, string(out))
}

func TestCriteriaHelpers(t *testing.T) {
	c := DefaultCriteria()
	require.Equal(t, DefaultPageSize, c.PageSize)
	require.False(t, c.HasFilters())

	c.SearchText = "   "
	require.False(t, c.HasFilters())
	c.Status = StatusPending
	require.True(t, c.HasFilters())

	c.Page = 3
	c.PageSize = 10
	require.Equal(t, 30, c.Offset())

	require.True(t, ValidPageSize(15))
	require.False(t, ValidPageSize(20))
	require.Equal(t, SortDesc, ParseSortDirection("DESC"))
	require.Equal(t, SortAsc, ParseSortDirection("sideways"))
}

func TestCustomerFullName(t *testing.T) {
	require.Equal(t, "Ana Ruiz", Customer{Name: "Ana", LastName: "Ruiz"}.FullName())
	require.Equal(t, "Ana", Customer{Name: "Ana"}.FullName())
}
