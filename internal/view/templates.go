package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/shared"
	"github.com/odyssey-erp/invoice-worklist/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Data        any
}

// Option configures the template helpers.
type Option func(*helpers)

type helpers struct {
	loc     *time.Location
	printer *message.Printer
}

// WithLocation renders timestamps in loc instead of the process zone.
func WithLocation(loc *time.Location) Option {
	return func(h *helpers) {
		if loc != nil {
			h.loc = loc
		}
	}
}

// NewEngine parses the embedded templates.
func NewEngine(opts ...Option) (*Engine, error) {
	h := &helpers{loc: time.Local, printer: newPrinter()}
	for _, opt := range opts {
		opt(h)
	}
	tpl, err := template.New("root").Funcs(h.funcMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData. Output is buffered so a failing
// template never leaves a half-written page.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (h *helpers) funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(h.loc).Format("02 Jan 2006 15:04")
		},
		"displayDate": func(ts invoicing.Timestamp) string {
			if ts.IsZero() {
				return ""
			}
			return ts.Time.In(h.loc).Format("2 Jan 2006")
		},
		"displayTime": func(ts invoicing.Timestamp) string {
			if ts.IsZero() {
				return ""
			}
			return strings.ToLower(ts.Time.In(h.loc).Format("3:04 PM"))
		},
		"dateInput": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(h.loc).Format("2006-01-02")
		},
		"rfc3339": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(time.RFC3339Nano)
		},
		"money":       h.money,
		"statusLabel": func(s invoicing.StatusCode) string { return s.Label() },
		"statusClass": func(s invoicing.StatusCode) string {
			if !s.Valid() {
				s = invoicing.StatusUnknown
			}
			return "status-" + strings.ToLower(string(s))
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

func newPrinter() *message.Printer {
	return message.NewPrinter(language.AmericanEnglish)
}

// money formats amounts the way the worklist shows them: "$1,234.50".
func (h *helpers) money(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return h.printer.Sprintf("$%.2f", f)
}
