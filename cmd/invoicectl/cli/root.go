// Package cli implements invoicectl, an operator tool for the invoice API and the
// reference-data queue.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/gateway"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/query"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/refdata"
)

const dayLayout = "2006-01-02"

// Config is read from the same variables as the console.
type Config struct {
	APIURL    string        `envconfig:"INVOICE_API_URL" default:"http://127.0.0.1:5000/api"`
	APIKey    string        `envconfig:"INVOICE_API_KEY"`
	Timeout   time.Duration `envconfig:"INVOICE_API_TIMEOUT" default:"10s"`
	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	Timezone  string        `envconfig:"WORKLIST_TIMEZONE" default:"Local"`
}

// InvoiceAPI is the part of the invoice API the commands call.
type InvoiceAPI interface {
	SearchInvoices(ctx context.Context, q query.Query) (invoicing.InvoicePage, error)
	GetInvoice(ctx context.Context, id string) (*invoicing.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	refdata.Source
}

// JobQueue enqueues and inspects background jobs.
type JobQueue interface {
	Trigger(ctx context.Context, name string, invalidate bool) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
	Close() error
}

type runtime struct {
	cfg    Config
	apiURL string
	api    InvoiceAPI
	jobs   JobQueue
	loc    *time.Location
	logger *slog.Logger
	money  *message.Printer
}

// Option injects dependencies, mostly for tests.
type Option func(*runtime)

// WithInvoiceAPI skips building the HTTP client.
func WithInvoiceAPI(api InvoiceAPI) Option {
	return func(rt *runtime) { rt.api = api }
}

// WithJobQueue skips dialing Redis for job commands.
func WithJobQueue(q JobQueue) Option {
	return func(rt *runtime) { rt.jobs = q }
}

// WithLocation fixes the zone dates are read in.
func WithLocation(loc *time.Location) Option {
	return func(rt *runtime) { rt.loc = loc }
}

// NewRootCommand assembles the command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	rt := &runtime{money: message.NewPrinter(language.AmericanEnglish)}
	for _, opt := range opts {
		opt(rt)
	}

	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Inspect and maintain invoices from the command line",
		Long: `invoicectl talks to the same invoice API as the worklist console.

Configuration comes from the console's environment variables:
  INVOICE_API_URL, INVOICE_API_KEY, INVOICE_API_TIMEOUT, REDIS_ADDR, WORKLIST_TIMEZONE`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&rt.apiURL, "api-url", "", "Invoice API base URL (overrides INVOICE_API_URL)")

	root.AddCommand(
		newListCommand(rt),
		newShowCommand(rt),
		newDeleteCommand(rt),
		newCustomersCommand(rt),
		newStatusesCommand(rt),
		newJobsCommand(rt),
	)
	return root
}

func (rt *runtime) init(stderr io.Writer) error {
	if err := envconfig.Process("", &rt.cfg); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if rt.apiURL != "" {
		rt.cfg.APIURL = rt.apiURL
	}
	if rt.logger == nil {
		rt.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	if rt.loc == nil {
		loc := time.Local
		if rt.cfg.Timezone != "" && rt.cfg.Timezone != "Local" {
			var err error
			if loc, err = time.LoadLocation(rt.cfg.Timezone); err != nil {
				return fmt.Errorf("timezone %q: %w", rt.cfg.Timezone, err)
			}
		}
		rt.loc = loc
	}
	if rt.api == nil {
		rt.api = gateway.NewClient(rt.cfg.APIURL, rt.cfg.APIKey, rt.cfg.Timeout, gateway.WithLogger(rt.logger))
	}
	return nil
}

func (rt *runtime) jobQueue() JobQueue {
	if rt.jobs == nil {
		rt.jobs = NewJobsCLI(rt.cfg.RedisAddr)
	}
	return rt.jobs
}

func (rt *runtime) parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dayLayout, raw, rt.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", raw)
	}
	return &day, nil
}

func (rt *runtime) formatMoney(amount decimal.Decimal) string {
	return rt.money.Sprintf("$%.2f", amount.InexactFloat64())
}
