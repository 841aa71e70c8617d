package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PayloadMap carries the structured data forwarded to delivery channels
// (deep links, booking ids and the like). Values are restricted to what
// JSON can represent; the column is stored as JSONB.
type PayloadMap map[string]any

func (m *PayloadMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return m.parseFromBytes(v)
	case string:
		return m.parseFromBytes([]byte(v))
	default:
		return fmt.Errorf("PayloadMap: unsupported Scan type %T", src)
	}
}

func (m PayloadMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("PayloadMap: marshal: %w", err)
	}
	return string(encoded), nil
}

func (m *PayloadMap) parseFromBytes(raw []byte) error {
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("PayloadMap: unmarshal: %w", err)
	}
	*m = decoded
	return nil
}

// Strings flattens the payload into the string-only map push providers
// accept. Nested values are re-encoded as JSON.
func (m PayloadMap) Strings() map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for key, value := range m {
		switch v := value.(type) {
		case string:
			out[key] = v
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[key] = string(encoded)
		}
	}
	return out
}
