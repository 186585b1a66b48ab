package invoicehttp

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/platform/httpx"
)

type apiWorklist struct {
	Rows          []invoicing.InvoiceSummary `json:"rows"`
	Page          int                        `json:"page"`
	PageSize      int                        `json:"pageSize"`
	TotalRows     int                        `json:"totalRows"`
	HasMore       bool                       `json:"hasMore"`
	FiltersActive bool                       `json:"filtersActive"`
	SortField     invoicing.SortField        `json:"sortField"`
	SortDirection invoicing.SortDirection    `json:"sortDirection"`
	Error         string                     `json:"error,omitempty"`
}

// listJSON returns the session's worklist as currently sorted. It loads on first use and
// reports a failed load as a problem response only when there is nothing to show.
func (h *Handler) listJSON(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if ws.loaded.CompareAndSwap(false, true) {
		if err := ws.Worklist.Load(r.Context()); err != nil {
			h.logger.Warn("load worklist", slog.Any("error", err))
		}
	}
	v := ws.Worklist.View()
	if v.Err != nil && len(v.Rows) == 0 {
		httpx.RespondError(w, v.Err)
		return
	}
	page := h.listPage(v)
	httpx.JSON(w, http.StatusOK, apiWorklist{
		Rows:          v.Rows,
		Page:          v.Criteria.Page,
		PageSize:      v.Criteria.PageSize,
		TotalRows:     v.TotalRows,
		HasMore:       v.HasMore,
		FiltersActive: v.FiltersActive,
		SortField:     v.Criteria.Sort.Field,
		SortDirection: v.Criteria.Sort.Direction,
		Error:         page.Error,
	})
}
