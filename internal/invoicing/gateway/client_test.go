package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/query"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *Metrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewClient(server.URL+"/", "secret-key", 2*time.Second, WithMetrics(metrics)), metrics
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestSearchInvoicesSendsQueryAndKey(t *testing.T) {
	var got *http.Request
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		writeJSON(w, http.StatusOK, `{"result":[{"id":"1","customerToFullName":"John Doe","no":"INV-0001","creationTime":"2024-03-15T10:00:00","dueDateTime":"2024-04-15T00:00:00Z","amount":150.5,"status":"Paid"}],"page":0,"rowsPerPage":5,"totalRows":1}`)
	})

	criteria := invoicing.DefaultCriteria()
	criteria.SearchText = "john"
	page, err := client.SearchInvoices(context.Background(), query.Build(criteria))
	require.NoError(t, err)

	require.Equal(t, "/Invoice/Search", got.URL.Path)
	require.Equal(t, "secret-key", got.Header.Get("apikey"))
	require.Equal(t, "5", got.URL.Query().Get("$top"))
	require.Equal(t, "0", got.URL.Query().Get("$skip"))
	require.Contains(t, got.URL.Query().Get("$filter"), "contains(tolower(customerToFullName),'john')")

	require.Len(t, page.Rows, 1)
	row := page.Rows[0]
	require.Equal(t, "John Doe", row.CustomerName)
	require.True(t, decimal.RequireFromString("150.5").Equal(row.Amount))
	require.Equal(t, invoicing.StatusPaid, row.Status)
	require.Equal(t, 2024, row.CreationTime.Year())
	require.Equal(t, 1, page.TotalRows)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(opSearch, "success")))
}

func TestSearchInvoicesEmptyResultIsNotNil(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"result":null,"totalRows":0}`)
	})
	page, err := client.SearchInvoices(context.Background(), query.Build(invoicing.DefaultCriteria()))
	require.NoError(t, err)
	require.NotNil(t, page.Rows)
	require.True(t, page.Empty())
}

func TestStatusFailureIsTagged(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":"boom"}`)
	})

	statuses, err := client.StatusList(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrStatus)
	require.NotNil(t, statuses)
	require.Empty(t, statuses)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(opStatuses, "status")))
}

func TestGetInvoiceNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Invoice/missing", r.URL.Path)
		writeJSON(w, http.StatusNotFound, `{}`)
	})
	inv, err := client.GetInvoice(context.Background(), "missing")
	require.Nil(t, inv)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrStatus)
}

func TestGetInvoiceDecodesRecord(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Invoice/7", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"id":"7","no":"INV-0007","customerToId":"2","details":[{"title":"Hosting","quantity":1,"price":20}]}`)
	})
	inv, err := client.GetInvoice(context.Background(), "7")
	require.NoError(t, err)
	require.Equal(t, "INV-0007", inv.No)
	require.Len(t, inv.Details, 1)
	require.True(t, decimal.NewFromInt(20).Equal(inv.Details[0].Price))
}

func TestGetInvoiceEmptyBodyIsNotFound(t *testing.T) {
	for _, body := range []string{"", "null", " \n"} {
		client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, body)
		})
		inv, err := client.GetInvoice(context.Background(), "7")
		require.Nil(t, inv, "body %q", body)
		require.ErrorIs(t, err, ErrNotFound, "body %q", body)
		require.NotErrorIs(t, err, ErrStatus)
		require.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(opGet, "success")))
	}
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url, "k", time.Second)
	customers, err := client.CustomerList(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	require.Empty(t, customers)
}

func TestDecodeFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `not json`)
	})
	_, err := client.CategoryServiceList(context.Background())
	require.ErrorIs(t, err, ErrDecode)
}

func TestCreateInvoicePostsPayload(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/Invoice", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, `{"id":"new-1","no":"INV-0042"}`)
	})

	payload := invoicing.InvoicePayload{
		CustomerFromID: "c1",
		CustomerToID:   "c2",
		Shipping:       json.Number("0"),
		Discount:       json.Number("0"),
		Taxes:          json.Number("0"),
		Status:         invoicing.StatusDraft,
		DueDateTime:    "2024-04-15T00:00:00.000",
		Details: []invoicing.DetailPayload{{
			Title: "Hosting", CategoryID: "cat", Quantity: json.Number("2"), Price: json.Number("10.5"),
		}},
	}
	inv, err := client.CreateInvoice(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, "new-1", inv.ID)

	require.Equal(t, "c1", body["customerFromId"])
	require.NotContains(t, body, "no")
	require.NotContains(t, body, "creationTime")
	details := body["details"].([]any)
	require.Equal(t, 10.5, details[0].(map[string]any)["price"])
}

func TestCreateInvoiceAcceptsBareID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `"abc-123"`)
	})
	inv, err := client.CreateInvoice(context.Background(), invoicing.InvoicePayload{})
	require.NoError(t, err)
	require.Equal(t, "abc-123", inv.ID)
}

func TestUpdateAndDeleteUseIDQuery(t *testing.T) {
	var seen []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, `{}`)
	})

	inv, err := client.UpdateInvoice(context.Background(), "42", invoicing.InvoicePayload{})
	require.NoError(t, err)
	require.Equal(t, "42", inv.ID)
	require.NoError(t, client.DeleteInvoice(context.Background(), "42"))

	require.Equal(t, []string{"PATCH /Invoice/id?id=42", "DELETE /Invoice/id?id=42"}, seen)
}

func TestDeleteFailureSurfaces(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	err := client.DeleteInvoice(context.Background(), "1")
	require.ErrorIs(t, err, ErrStatus)
}

func TestCustomerListDecodes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Customer", r.URL.Path)
		writeJSON(w, http.StatusOK, `[{"id":"1","name":"Ana","lastName":"Ruiz","email":"ana@example.com"}]`)
	})
	customers, err := client.CustomerList(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, "Ana Ruiz", customers[0].FullName())
}
