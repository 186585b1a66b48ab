package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/gateway"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/query"
	"github.com/odyssey-erp/invoice-worklist/jobs"
)

type stubAPI struct {
	queries []query.Query
	rows    []invoicing.InvoiceSummary
	invoice *invoicing.Invoice
	deleted []string
}

func (s *stubAPI) SearchInvoices(_ context.Context, q query.Query) (invoicing.InvoicePage, error) {
	s.queries = append(s.queries, q)
	return invoicing.InvoicePage{Rows: s.rows, PageSize: q.Top, TotalRows: len(s.rows)}, nil
}

func (s *stubAPI) GetInvoice(_ context.Context, id string) (*invoicing.Invoice, error) {
	if s.invoice == nil || s.invoice.ID != id {
		return nil, &gateway.StatusError{Operation: "GetInvoice", Code: http.StatusNotFound}
	}
	return s.invoice, nil
}

func (s *stubAPI) DeleteInvoice(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubAPI) CustomerList(context.Context) ([]invoicing.Customer, error) {
	return []invoicing.Customer{{ID: "1", Name: "Ana", LastName: "Ruiz", Email: "ana@example.com"}}, nil
}

func (s *stubAPI) CategoryServiceList(context.Context) ([]invoicing.CategoryService, error) {
	return nil, nil
}

func (s *stubAPI) StatusList(context.Context) ([]invoicing.StatusOption, error) {
	return []invoicing.StatusOption{{Text: "Paid", Value: invoicing.StatusPaid}}, nil
}

type stubQueue struct {
	triggered  []string
	invalidate bool
	closed     bool
}

func (q *stubQueue) Trigger(_ context.Context, name string, invalidate bool) (*asynq.TaskInfo, error) {
	if name != jobs.TaskRefdataWarmup {
		return nil, errors.New("jobs cli: unsupported job " + name)
	}
	q.triggered = append(q.triggered, name)
	q.invalidate = invalidate
	return &asynq.TaskInfo{ID: "task-1", Type: name, Queue: jobs.QueueDefault}, nil
}

func (q *stubQueue) InspectQueue(context.Context) (QueueStats, error) {
	return QueueStats{Queue: jobs.QueueDefault, Pending: 2}, nil
}

func (q *stubQueue) Close() error {
	q.closed = true
	return nil
}

func run(t *testing.T, api *stubAPI, queue *stubQueue, args ...string) (string, error) {
	t.Helper()
	opts := []Option{WithInvoiceAPI(api), WithLocation(time.UTC)}
	if queue != nil {
		opts = append(opts, WithJobQueue(queue))
	}
	cmd := NewRootCommand(opts...)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListBuildsQueryAndSortsPage(t *testing.T) {
	api := &stubAPI{rows: []invoicing.InvoiceSummary{
		{ID: "1", No: "INV-0001", CustomerName: "Ana Ruiz", Amount: decimal.NewFromInt(20), Status: invoicing.StatusPaid},
		{ID: "2", No: "INV-0002", CustomerName: "Luis Paz", Amount: decimal.RequireFromString("1500.5"), Status: invoicing.StatusPending},
	}}

	out, err := run(t, api, nil, "list", "--search", "Ana", "--status", "Paid", "--created", "2024-03-01", "--size", "10", "--page", "2", "--sort", "amount", "--desc")
	require.NoError(t, err)

	require.Len(t, api.queries, 1)
	q := api.queries[0]
	require.Equal(t, 10, q.Top)
	require.Equal(t, 10, q.Skip)
	require.Contains(t, q.Filter, "creationTime ge 2024-03-01T00:00:00.000Z and creationTime lt 2024-03-02T00:00:00.000Z")
	require.Contains(t, q.Filter, "status eq 'Paid'")
	require.Contains(t, q.Filter, "'ana'")

	require.Less(t, bytes.Index([]byte(out), []byte("Luis Paz")), bytes.Index([]byte(out), []byte("Ana Ruiz")))
	require.Contains(t, out, "$1,500.50")
	require.Contains(t, out, "Pendiente")
}

func TestListRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"list", "--size", "7"},
		{"list", "--page", "0"},
		{"list", "--sort", "options"},
		{"list", "--due", "31/12/2024"},
	} {
		api := &stubAPI{}
		_, err := run(t, api, nil, args...)
		require.Error(t, err, args)
		require.Empty(t, api.queries, args)
	}
}

func TestListJSON(t *testing.T) {
	api := &stubAPI{rows: []invoicing.InvoiceSummary{{ID: "1", CustomerName: "Ana Ruiz", Status: invoicing.StatusPaid}}}
	out, err := run(t, api, nil, "list", "--json")
	require.NoError(t, err)

	var got listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, 1, got.TotalRows)
	require.Equal(t, 5, got.PageSize)
	require.Equal(t, "Ana Ruiz", got.Rows[0].CustomerName)
}

func TestShowPrintsTotals(t *testing.T) {
	api := &stubAPI{invoice: &invoicing.Invoice{
		ID:                 "42",
		No:                 "INV-0042",
		CustomerToFullName: "Ana Ruiz",
		Status:             invoicing.StatusOverdue,
		DueDateTime:        invoicing.NewTimestamp(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
		Details: []invoicing.InvoiceDetail{
			{Title: "Hosting", Quantity: decimal.NewFromInt(2), Price: decimal.RequireFromString("10.5")},
			{Title: "Soporte", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(4)},
		},
	}}
	out, err := run(t, api, nil, "show", "42")
	require.NoError(t, err)
	require.Contains(t, out, "Invoice INV-0042 (42)")
	require.Contains(t, out, "Vencido")
	require.Contains(t, out, "2024-04-01")
	require.Contains(t, out, "Total: $25.00")

	_, err = run(t, api, nil, "show", "7")
	require.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	api := &stubAPI{}
	_, err := run(t, api, nil, "delete", "3")
	require.Error(t, err)
	require.Empty(t, api.deleted)

	out, err := run(t, api, nil, "delete", "3", "--yes")
	require.NoError(t, err)
	require.Equal(t, []string{"3"}, api.deleted)
	require.Contains(t, out, "Deleted invoice 3")
}

func TestReferenceListCommands(t *testing.T) {
	out, err := run(t, &stubAPI{}, nil, "customers")
	require.NoError(t, err)
	require.Contains(t, out, "Ana Ruiz")
	require.Contains(t, out, "ana@example.com")

	out, err = run(t, &stubAPI{}, nil, "statuses")
	require.NoError(t, err)
	require.Contains(t, out, "Pagado")
}

func TestJobsTriggerAndStats(t *testing.T) {
	queue := &stubQueue{}
	out, err := run(t, &stubAPI{}, queue, "jobs", "trigger", jobs.TaskRefdataWarmup, "--invalidate")
	require.NoError(t, err)
	require.Equal(t, []string{jobs.TaskRefdataWarmup}, queue.triggered)
	require.True(t, queue.invalidate)
	require.True(t, queue.closed)
	require.Contains(t, out, "task-1")

	_, err = run(t, &stubAPI{}, &stubQueue{}, "jobs", "trigger", "unknown")
	require.Error(t, err)

	out, err = run(t, &stubAPI{}, &stubQueue{}, "jobs", "stats")
	require.NoError(t, err)
	var stats QueueStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, 2, stats.Pending)
}
