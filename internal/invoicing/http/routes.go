package invoicehttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the worklist and form endpoints under /invoices.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/", h.showList)
	r.Post("/search", h.search)
	r.Post("/typeahead", h.typeahead)
	r.Post("/clear", h.clear)
	r.Post("/page", h.setPage)
	r.Post("/size", h.setPageSize)
	r.Post("/sort", h.sort)

	r.Get("/new", h.newForm)
	r.Post("/new", h.submitForm)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/edit", h.editForm)
		r.Post("/edit", h.submitForm)
		r.Post("/delete", h.delete)
	})
}

// MountAPI registers the JSON endpoints under /api.
func (h *Handler) MountAPI(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/invoices", h.listJSON)
}
