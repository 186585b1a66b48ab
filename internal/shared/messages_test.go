package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/form"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/gateway"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/lineitems"
)

func TestUserSafeMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", fmt.Errorf("submit: %w", &form.ValidationError{Fields: map[string]string{"no": "x"}}), "Revise los campos marcados"},
		{"last row", lineitems.ErrLastRow, "La factura debe tener al menos un elemento"},
		{"not found status", &gateway.StatusError{Operation: "GetInvoice", Code: 404}, "La factura no existe"},
		{"server status", &gateway.StatusError{Operation: "SearchInvoices", Code: 500}, MsgLoadInvoices},
		{"transport", fmt.Errorf("%w: search: %w", gateway.ErrTransport, errors.New("dial tcp: refused")), "No se pudo conectar con el servidor de facturas"},
		{"deadline", context.DeadlineExceeded, "El servidor tardó demasiado en responder"},
		{"unknown", errors.New("pq: secret table"), MsgLoadInvoices},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, UserSafeMessage(tc.err, MsgLoadInvoices))
		})
	}
}

func TestPagination(t *testing.T) {
	p := NewPagination(2, 5, 12)
	require.Equal(t, 3, p.TotalPages)
	require.True(t, p.HasPrev())
	require.True(t, p.HasNext())
	require.Equal(t, 6, p.From())
	require.Equal(t, 10, p.To())

	last := NewPagination(3, 5, 12)
	require.False(t, last.HasNext())
	require.Equal(t, 12, last.To())

	empty := NewPagination(0, 0, 0)
	require.Equal(t, 1, empty.Page)
	require.Equal(t, 0, empty.From())
	require.False(t, empty.HasPrev())
}
