// Package gateway is the HTTP boundary to the remote invoice API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/query"
)

const (
	opSearch     = "search_invoices"
	opGet        = "get_invoice"
	opCreate     = "create_invoice"
	opUpdate     = "update_invoice"
	opDelete     = "delete_invoice"
	opStatuses   = "status_list"
	opCustomers  = "customer_list"
	opCategories = "category_service_list"
)

// Client talks to the invoice API. Every method returns the decoded value or an error
// wrapping ErrTransport, ErrStatus or ErrDecode; callers choose the safe default.
type Client struct {
	http    *resty.Client
	hc      *http.Client
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for failed calls.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records call outcomes.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithHTTPClient swaps the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// NewClient builds a Client for baseURL authenticating with apiKey.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc != nil {
		c.http = resty.NewWithClient(c.hc)
	} else {
		c.http = resty.New()
	}
	c.http.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", apiKey)
	if timeout > 0 {
		c.http.SetTimeout(timeout)
	}
	c.logger = c.logger.With(slog.String("component", "invoice_gateway"))
	return c
}

// SearchInvoices runs a worklist query.
func (c *Client) SearchInvoices(ctx context.Context, q query.Query) (invoicing.InvoicePage, error) {
	var page invoicing.InvoicePage
	err := c.do(ctx, opSearch, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParamsFromValues(q.Values()).Get("/Invoice/Search")
	}, &page)
	if err != nil {
		return invoicing.InvoicePage{}, err
	}
	if page.Rows == nil {
		page.Rows = []invoicing.InvoiceSummary{}
	}
	return page, nil
}

// GetInvoice fetches one invoice. An empty or null body means the invoice does not
// exist and yields ErrNotFound.
func (c *Client) GetInvoice(ctx context.Context, id string) (*invoicing.Invoice, error) {
	var raw json.RawMessage
	err := c.do(ctx, opGet, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Get("/Invoice/{id}")
	}, &raw)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, fmt.Errorf("%w: %s %s: empty body", ErrNotFound, opGet, id)
	}
	var inv invoicing.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, opGet, err)
	}
	return &inv, nil
}

// CreateInvoice posts a new invoice. The API answers either with the created record
// or with its bare id.
func (c *Client) CreateInvoice(ctx context.Context, payload invoicing.InvoicePayload) (*invoicing.Invoice, error) {
	var raw json.RawMessage
	err := c.do(ctx, opCreate, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Idempotency-Key", uuid.NewString()).SetBody(payload).Post("/Invoice")
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeCreated(raw)
}

// UpdateInvoice patches an existing invoice.
func (c *Client) UpdateInvoice(ctx context.Context, id string, payload invoicing.InvoicePayload) (*invoicing.Invoice, error) {
	var inv invoicing.Invoice
	err := c.do(ctx, opUpdate, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("id", id).SetBody(payload).Patch("/Invoice/id")
	}, &inv)
	if err != nil {
		return nil, err
	}
	if inv.ID == "" {
		inv.ID = id
	}
	return &inv, nil
}

// DeleteInvoice removes an invoice. Any non-success is an error; there is no retry.
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	return c.do(ctx, opDelete, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("id", id).Delete("/Invoice/id")
	}, nil)
}

// StatusList returns the ordered status options.
func (c *Client) StatusList(ctx context.Context) ([]invoicing.StatusOption, error) {
	statuses := []invoicing.StatusOption{}
	err := c.do(ctx, opStatuses, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/Invoice/Status")
	}, &statuses)
	if err != nil {
		return []invoicing.StatusOption{}, err
	}
	return statuses, nil
}

// CustomerList returns every customer.
func (c *Client) CustomerList(ctx context.Context) ([]invoicing.Customer, error) {
	customers := []invoicing.Customer{}
	err := c.do(ctx, opCustomers, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/Customer")
	}, &customers)
	if err != nil {
		return []invoicing.Customer{}, err
	}
	return customers, nil
}

// CategoryServiceList returns every service category.
func (c *Client) CategoryServiceList(ctx context.Context) ([]invoicing.CategoryService, error) {
	categories := []invoicing.CategoryService{}
	err := c.do(ctx, opCategories, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/CategoryService")
	}, &categories)
	if err != nil {
		return []invoicing.CategoryService{}, err
	}
	return categories, nil
}

func (c *Client) do(ctx context.Context, operation string, send func(*resty.Request) (*resty.Response, error), dest any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(operation, start, err)
		if err != nil {
			c.logger.Warn("invoice api call failed", slog.String("operation", operation), slog.Any("error", err))
		}
	}()

	resp, err := send(c.http.R().SetContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, operation, err)
	}
	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return &StatusError{Operation: operation, Code: resp.StatusCode()}
	}
	if dest == nil {
		return nil
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, operation, err)
	}
	return nil
}

func decodeCreated(raw json.RawMessage) (*invoicing.Invoice, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s: empty body", ErrDecode, opCreate)
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return &invoicing.Invoice{ID: id}, nil
	}
	var inv invoicing.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, opCreate, err)
	}
	return &inv, nil
}
