// Package invoicehttp serves the invoice worklist and the invoice form.
package invoicehttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	formdec "github.com/go-playground/form/v4"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/form"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/refdata"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/worklist"
	"github.com/odyssey-erp/invoice-worklist/internal/shared"
	"github.com/odyssey-erp/invoice-worklist/internal/view"
)

const dayLayout = "2006-01-02"

// Gateway is the invoice API surface the handlers drive.
type Gateway interface {
	worklist.Searcher
	form.Gateway
	DeleteInvoice(ctx context.Context, id string) error
}

// Handler coordinates HTTP requests for the invoice screens.
type Handler struct {
	logger     *slog.Logger
	gateway    Gateway
	catalog    *refdata.Catalog
	workspaces *Workspaces
	templates  *view.Engine
	csrf       *shared.CSRFManager
	decoder    *formdec.Decoder
	loc        *time.Location
	debounce   time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithLocation sets the zone date inputs are read in.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.loc = loc
		}
	}
}

// WithSearchDebounce tells the page how long the server waits after the last keystroke.
func WithSearchDebounce(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.debounce = d
		}
	}
}

// NewHandler constructs the invoice HTTP handler.
func NewHandler(logger *slog.Logger, gateway Gateway, catalog *refdata.Catalog, workspaces *Workspaces, templates *view.Engine, csrf *shared.CSRFManager, opts ...Option) *Handler {
	h := &Handler{
		logger:     logger,
		gateway:    gateway,
		catalog:    catalog,
		workspaces: workspaces,
		templates:  templates,
		csrf:       csrf,
		decoder:    formdec.NewDecoder(),
		loc:        time.Local,
		debounce:   worklist.DefaultSearchDebounce,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type column struct {
	Field  invoicing.SortField
	Label  string
	Active bool
	Desc   bool
}

var columns = []column{
	{Field: invoicing.SortByCustomer, Label: "Cliente"},
	{Field: invoicing.SortByNo, Label: "No."},
	{Field: invoicing.SortByCreationTime, Label: "Fecha de creación"},
	{Field: invoicing.SortByDueDateTime, Label: "Fecha de vencimiento"},
	{Field: invoicing.SortByAmount, Label: "Monto"},
	{Field: invoicing.SortByStatus, Label: "Estado"},
}

type listPage struct {
	View         worklist.View
	Columns      []column
	Statuses     []invoicing.StatusCode
	PageSizes    []int
	CreationDate string
	DueDate      string
	Error        string
	DebounceMs   int64
}

type searchForm struct {
	Query        string `form:"q"`
	Status       string `form:"status"`
	CreationDate string `form:"creationDate"`
	DueDate      string `form:"dueDate"`
}

func (h *Handler) showList(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if ws.loaded.CompareAndSwap(false, true) || r.URL.Query().Get("refresh") == "1" {
		if err := ws.Worklist.ForceRefresh(r.Context(), false); err != nil {
			h.logger.Warn("load worklist", slog.Any("error", err))
		}
	}
	h.render(w, r, sess, http.StatusOK, "pages/invoices.html", "Facturas", h.listPage(ws.Worklist.View()))
}

func (h *Handler) listPage(v worklist.View) listPage {
	cols := make([]column, len(columns))
	copy(cols, columns)
	for i := range cols {
		if cols[i].Field == v.Criteria.Sort.Field {
			cols[i].Active = true
			cols[i].Desc = v.Criteria.Sort.Direction == invoicing.SortDesc
		}
	}
	page := listPage{
		View:       v,
		Columns:    cols,
		Statuses:   invoicing.Statuses(),
		PageSizes:  invoicing.PageSizes,
		DebounceMs: h.debounce.Milliseconds(),
	}
	if v.Criteria.CreationDateFrom != nil {
		page.CreationDate = v.Criteria.CreationDateFrom.Format(dayLayout)
	}
	if v.Criteria.DueDateFrom != nil {
		page.DueDate = v.Criteria.DueDateFrom.Format(dayLayout)
	}
	if v.Err != nil {
		page.Error = shared.UserSafeMessage(v.Err, shared.MsgLoadInvoices)
	}
	return page
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var input searchForm
	if err := h.decodeForm(r, &input); err != nil {
		h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, "Solicitud inválida")
		return
	}
	creation, err := h.parseDay(input.CreationDate)
	if err != nil {
		h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, "Fecha de inicio inválida")
		return
	}
	due, err := h.parseDay(input.DueDate)
	if err != nil {
		h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, "Fecha de fin inválida")
		return
	}
	ws.loaded.Store(true)
	ws.Worklist.SetSearchText(strings.TrimSpace(input.Query))
	ws.Worklist.SetStatus(invoicing.ParseStatus(input.Status))
	ws.Worklist.SetCreationDate(creation)
	ws.Worklist.SetDueDate(due)
	if err := ws.Worklist.ApplySearch(r.Context()); err != nil {
		h.logger.Warn("apply search", slog.Any("error", err))
	}
	http.Redirect(w, r, "/invoices", http.StatusSeeOther)
}

// typeahead schedules a debounced search. The page reloads once the window has passed.
func (h *Handler) typeahead(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var input searchForm
	if err := h.decodeForm(r, &input); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ws.loaded.Store(true)
	ws.Worklist.TypeSearchText(r.Context(), strings.TrimSpace(input.Query))
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.loaded.Store(true)
	if err := ws.Worklist.ClearFilters(r.Context()); err != nil {
		h.logger.Warn("clear filters", slog.Any("error", err))
	}
	http.Redirect(w, r, "/invoices", http.StatusSeeOther)
}

type pageForm struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

func (h *Handler) setPage(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var input pageForm
	if err := h.decodeForm(r, &input); err != nil {
		h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, "Página inválida")
		return
	}
	if err := ws.Worklist.SetPage(r.Context(), input.Page); err != nil {
		if errors.Is(err, worklist.ErrInvalidPage) {
			h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, "Página inválida")
			return
		}
		h.logger.Warn("set page", slog.Any("error", err))
	}
	http.Redirect(w, r, "/invoices", http.StatusSeeOther)
}

func (h *Handler) setPageSize(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var input pageForm
	if err := h.decodeForm(r, &input); err != nil {
		h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, "Tamaño de página inválido")
		return
	}
	if err := ws.Worklist.SetPageSize(r.Context(), input.Size); err != nil {
		if errors.Is(err, worklist.ErrInvalidPageSize) {
			h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, "Tamaño de página inválido")
			return
		}
		h.logger.Warn("set page size", slog.Any("error", err))
	}
	http.Redirect(w, r, "/invoices", http.StatusSeeOther)
}

// sort reorders the loaded page. It never calls the invoice API.
func (h *Handler) sort(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	field := invoicing.SortField(r.PostFormValue("field"))
	if err := ws.Worklist.ToggleSort(field); err != nil {
		h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, "Columna no ordenable")
		return
	}
	http.Redirect(w, r, "/invoices", http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.gateway.DeleteInvoice(r.Context(), id); err != nil {
		h.logger.Error("delete invoice", slog.String("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, shared.UserSafeMessage(err, shared.MsgDeleteInvoice))
		return
	}
	h.logger.Info("invoice deleted", slog.String("id", id))
	if err := ws.Worklist.ForceRefresh(r.Context(), false); err != nil {
		h.logger.Warn("refresh after delete", slog.Any("error", err))
	}
	h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashSuccess, "Factura eliminada")
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*shared.Session, *Workspace, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("invoice handler without session", slog.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, nil, false
	}
	return sess, h.workspaces.Get(sess.ID), true
}

func (h *Handler) decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return h.decoder.Decode(dst, r.PostForm)
}

// parseDay reads a date input. Empty means no date.
func (h *Handler) parseDay(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dayLayout, raw, h.loc)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, sess *shared.Session, status int, name, title string, data any) {
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	td := view.TemplateData{
		Title:       title,
		CSRFToken:   token,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, td); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, sess *shared.Session, location, kind, message string) {
	sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	http.Redirect(w, r, location, http.StatusSeeOther)
}
