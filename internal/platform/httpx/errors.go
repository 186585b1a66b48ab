// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/gateway"
)

// Sentinel errors for handlers that reject input before reaching the invoice API.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// RespondError maps handler and gateway errors to RFC7807 responses. Upstream
// details are never echoed back.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, gateway.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, gateway.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		Problem(w, http.StatusGatewayTimeout, "Invoice API Unreachable", "")
	case errors.Is(err, gateway.ErrStatus), errors.Is(err, gateway.ErrDecode):
		Problem(w, http.StatusBadGateway, "Invoice API Error", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
