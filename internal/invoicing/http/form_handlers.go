package invoicehttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/form"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/lineitems"
	"github.com/odyssey-erp/invoice-worklist/internal/shared"
)

// draftForm mirrors the invoice form. Line items post as details[i].field.
type draftForm struct {
	No             string       `form:"no"`
	CustomerFromID string       `form:"customerFromId"`
	CustomerToID   string       `form:"customerToId"`
	CreationTime   string       `form:"creationTime"`
	DueDateTime    string       `form:"dueDateTime"`
	Status         string       `form:"status"`
	Shipping       string       `form:"shipping"`
	Discount       string       `form:"discount"`
	Taxes          string       `form:"taxes"`
	Details        []detailForm `form:"details"`
	Add            string       `form:"add"`
	Remove         *int         `form:"remove"`
}

type detailForm struct {
	Title        string `form:"title"`
	Description  string `form:"description"`
	CategoryID   string `form:"categoryId"`
	Quantity     string `form:"quantity"`
	Price        string `form:"price"`
	CreationTime string `form:"creationTime"`
}

type formPage struct {
	Draft      form.Draft
	Action     string
	Totals     lineitems.Totals
	RowErrors  []lineitems.RowErrors
	Errors     map[string]string
	Customers  []invoicing.Customer
	Categories []invoicing.CategoryService
	Statuses   []invoicing.StatusOption
	Notices    []string
	Error      string
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ws.Form.New()
	h.renderForm(w, r, sess, ws, http.StatusOK, nil, "")
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := ws.Form.Hydrate(r.Context(), id); err != nil {
		h.logger.Error("hydrate invoice", slog.String("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashError, shared.UserSafeMessage(err, shared.MsgLoadInvoice))
		return
	}
	h.renderForm(w, r, sess, ws, http.StatusOK, nil, "")
}

// submitForm handles save, add-row and remove-row posts of the form.
func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var input draftForm
	if err := h.decodeForm(r, &input); err != nil {
		h.logger.Warn("decode invoice form", slog.Any("error", err))
		h.renderForm(w, r, sess, ws, http.StatusBadRequest, nil, "Solicitud inválida")
		return
	}
	fieldErrs := h.applyDraft(r, ws, chi.URLParam(r, "id"), input)

	switch {
	case input.Add != "":
		ws.Form.AddRow()
		h.renderForm(w, r, sess, ws, http.StatusOK, nil, "")
		return
	case input.Remove != nil:
		if err := ws.Form.RemoveRow(*input.Remove); err != nil {
			h.renderForm(w, r, sess, ws, http.StatusUnprocessableEntity, nil, shared.UserSafeMessage(err, shared.MsgSaveInvoice))
			return
		}
		h.renderForm(w, r, sess, ws, http.StatusOK, nil, "")
		return
	}

	if len(fieldErrs) > 0 {
		var verr *form.ValidationError
		if err := ws.Form.Validate(); errors.As(err, &verr) {
			for k, v := range verr.Fields {
				if _, taken := fieldErrs[k]; !taken {
					fieldErrs[k] = v
				}
			}
		}
		h.renderForm(w, r, sess, ws, http.StatusBadRequest, fieldErrs, "")
		return
	}

	editing := ws.Form.Draft().Editing()
	saved, err := ws.Form.Submit(r.Context())
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			h.renderForm(w, r, sess, ws, http.StatusBadRequest, verr.Fields, "")
			return
		}
		h.renderForm(w, r, sess, ws, http.StatusBadGateway, nil, shared.UserSafeMessage(err, shared.MsgSaveInvoice))
		return
	}

	ws.loaded.Store(true)
	if err := ws.Worklist.ForceRefresh(r.Context(), !editing); err != nil {
		h.logger.Warn("refresh after save", slog.Any("error", err))
	}
	ws.Form.New()
	message := "Factura creada"
	if editing {
		message = "Factura actualizada"
	}
	h.logger.Info("invoice form submitted", slog.String("id", saved.ID), slog.Bool("update", editing))
	h.redirectWithFlash(w, r, sess, "/invoices", shared.FlashSuccess, message)
}

// applyDraft replaces the workspace draft with the posted values. Rows go through the
// editor field by field so totals and row checks follow the same path as interactive edits.
func (h *Handler) applyDraft(r *http.Request, ws *Workspace, id string, input draftForm) map[string]string {
	errs := make(map[string]string)
	header := form.Header{
		ID:             id,
		No:             strings.TrimSpace(input.No),
		CustomerFromID: input.CustomerFromID,
		CustomerToID:   input.CustomerToID,
		Status:         invoicing.ParseStatus(input.Status),
	}
	header.CustomerToFullName = h.customerName(r, input.CustomerToID)

	if day, err := h.parseDay(input.CreationTime); err != nil {
		errs["creationTime"] = "Fecha inválida"
	} else if day != nil {
		header.CreationTime = *day
	}
	if day, err := h.parseDay(input.DueDateTime); err != nil {
		errs["dueDateTime"] = "Fecha inválida"
	} else if day != nil {
		header.DueDateTime = *day
	}
	amounts := []struct {
		key string
		raw string
		dst *decimal.Decimal
	}{
		{"shipping", input.Shipping, &header.Shipping},
		{"discount", input.Discount, &header.Discount},
		{"taxes", input.Taxes, &header.Taxes},
	}
	for _, a := range amounts {
		value, err := parseAmount(a.raw)
		if err != nil {
			errs[a.key] = "Número inválido"
			continue
		}
		*a.dst = value
	}

	items := make([]lineitems.LineItem, len(input.Details))
	for i, d := range input.Details {
		if created, err := time.Parse(time.RFC3339Nano, d.CreationTime); err == nil {
			items[i].CreatedAt = created
		}
	}
	ws.Form.Replace(form.Draft{Header: header, LineItems: items})

	for i, d := range input.Details {
		// key is the form input name; price posts as "price".
		fields := []struct {
			name  lineitems.Field
			key   string
			value string
		}{
			{lineitems.FieldTitle, "title", d.Title},
			{lineitems.FieldDescription, "description", d.Description},
			{lineitems.FieldCategoryID, "categoryId", d.CategoryID},
			{lineitems.FieldQuantity, "quantity", d.Quantity},
			{lineitems.FieldUnitPrice, "price", d.Price},
		}
		for _, f := range fields {
			if err := ws.Form.EditField(i, f.name, f.value); err != nil {
				errs[fmt.Sprintf("details.%d.%s", i, f.key)] = shared.UserSafeMessage(err, "Valor inválido")
			}
		}
	}
	return errs
}

func (h *Handler) customerName(r *http.Request, id string) string {
	if id == "" || h.catalog == nil {
		return ""
	}
	customers, err := h.catalog.Customers.FetchOnce(r.Context())
	if err != nil {
		return ""
	}
	for _, c := range customers {
		if c.ID == id {
			return c.FullName()
		}
	}
	return ""
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, sess *shared.Session, ws *Workspace, status int, fieldErrs map[string]string, message string) {
	draft := ws.Form.Draft()
	page := formPage{
		Draft:     draft,
		Action:    "/invoices/new",
		Totals:    ws.Form.Totals(),
		RowErrors: ws.Form.RowErrors(),
		Errors:    fieldErrs,
		Error:     message,
	}
	if page.Errors == nil {
		page.Errors = map[string]string{}
	}
	title := "Nueva factura"
	if draft.Editing() {
		page.Action = "/invoices/" + draft.ID + "/edit"
		title = "Editar factura"
	}
	h.loadReferenceData(r, &page)
	h.render(w, r, sess, status, "pages/invoice_form.html", title, page)
}

// loadReferenceData fills the selectors. A failed list renders empty with a notice.
func (h *Handler) loadReferenceData(r *http.Request, page *formPage) {
	if h.catalog == nil {
		return
	}
	ctx := r.Context()
	var err error
	if page.Customers, err = h.catalog.Customers.FetchOnce(ctx); err != nil {
		page.Customers = []invoicing.Customer{}
		page.Notices = append(page.Notices, shared.MsgLoadCustomers)
	}
	if page.Categories, err = h.catalog.Categories.FetchOnce(ctx); err != nil {
		page.Categories = []invoicing.CategoryService{}
		page.Notices = append(page.Notices, shared.MsgLoadCategories)
	}
	if page.Statuses, err = h.catalog.Statuses.FetchOnce(ctx); err != nil {
		page.Statuses = []invoicing.StatusOption{}
		page.Notices = append(page.Notices, shared.MsgLoadStatuses)
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
