package shared

import (
	"context"
	"errors"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/form"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/gateway"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/lineitems"
)

// Fallback messages for the places an API failure surfaces.
const (
	MsgLoadInvoices   = "Error al cargar facturas"
	MsgLoadInvoice    = "Error al cargar la factura"
	MsgLoadCustomers  = "Error al cargar clientes"
	MsgLoadCategories = "Error al cargar servicios"
	MsgLoadStatuses   = "Error al cargar estados"
	MsgSaveInvoice    = "Error al guardar la factura"
	MsgDeleteInvoice  = "Error al eliminar la factura"
)

// UserSafeMessage turns err into text fit for a flash message. Errors it does not
// recognise yield fallback, so internal details never reach the page.
func UserSafeMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Revise los campos marcados"
	case errors.Is(err, lineitems.ErrLastRow):
		return "La factura debe tener al menos un elemento"
	case errors.Is(err, lineitems.ErrIndexOutOfRange):
		return "El elemento ya no existe"
	case errors.Is(err, lineitems.ErrInvalidNumber):
		return "Número inválido"
	case errors.Is(err, gateway.ErrNotFound), errors.Is(err, form.ErrNoInvoice):
		return "La factura no existe"
	case errors.Is(err, gateway.ErrTransport):
		return "No se pudo conectar con el servidor de facturas"
	case errors.Is(err, context.DeadlineExceeded):
		return "El servidor tardó demasiado en responder"
	default:
		return fallback
	}
}
