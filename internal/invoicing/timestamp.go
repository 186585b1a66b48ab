package invoicing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// WireLayout is the zone-less timestamp layout the invoice API uses for writes.
const WireLayout = "2006-01-02T15:04:05.000"

var readLayouts = []string{
	time.RFC3339Nano,
	WireLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp decodes API datetimes. Values without an offset are taken as UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses any layout the API is known to emit.
func ParseTimestamp(raw string) (Timestamp, error) {
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invoicing: unrecognised timestamp %q", raw)
}

// UnmarshalJSON accepts RFC3339 and zone-less layouts; null and "" yield the zero value.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// MarshalJSON renders RFC3339 in UTC.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}
