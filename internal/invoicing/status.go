package invoicing

import (
	"encoding/json"
	"strings"
)

// StatusCode enumerates invoice statuses.
type StatusCode string

const (
	StatusUnknown StatusCode = "Unknown"
	StatusPaid    StatusCode = "Paid"
	StatusPending StatusCode = "Pending"
	StatusOverdue StatusCode = "Overdue"
	StatusDraft   StatusCode = "Draft"
)

// StatusStyle is the badge palette for a status.
type StatusStyle struct {
	Color      string
	Background string
}

type statusInfo struct {
	label string
	style StatusStyle
}

var statusTable = map[StatusCode]statusInfo{
	StatusUnknown: {label: "Desconocido", style: StatusStyle{Color: "black", Background: "#f0f0f0"}},
	StatusPaid:    {label: "Pagado", style: StatusStyle{Color: "#1b9535", Background: "#dbf6e5"}},
	StatusPending: {label: "Pendiente", style: StatusStyle{Color: "#d78a1a", Background: "#fff1d6"}},
	StatusOverdue: {label: "Vencido", style: StatusStyle{Color: "red", Background: "#f8d7da"}},
	StatusDraft:   {label: "Borrador", style: StatusStyle{Color: "gray", Background: "#e2e3e5"}},
}

// Statuses lists every known status in display order.
func Statuses() []StatusCode {
	return []StatusCode{StatusUnknown, StatusPaid, StatusPending, StatusOverdue, StatusDraft}
}

// ParseStatus maps a wire value to a StatusCode. Empty input stays empty so it can
// express "no status filter"; unrecognised values collapse to StatusUnknown.
func ParseStatus(raw string) StatusCode {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for code := range statusTable {
		if strings.EqualFold(string(code), raw) {
			return code
		}
	}
	return StatusUnknown
}

// Valid reports whether s is one of the known statuses.
func (s StatusCode) Valid() bool {
	_, ok := statusTable[s]
	return ok
}

// Label returns the display label.
func (s StatusCode) Label() string {
	if info, ok := statusTable[s]; ok {
		return info.label
	}
	return statusTable[StatusUnknown].label
}

// Style returns the badge palette.
func (s StatusCode) Style() StatusStyle {
	if info, ok := statusTable[s]; ok {
		return info.style
	}
	return statusTable[StatusUnknown].style
}

// UnmarshalJSON tolerates unknown values from the wire.
func (s *StatusCode) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}
