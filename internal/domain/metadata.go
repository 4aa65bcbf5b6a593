package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata carries per-notification context as a flat string map. Each
// notification type documents its own keys (e.g. quote_update sets
// "quote_id" and "symbol"; payment sets "payment_id" and "amount").
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: cannot scan %T", src)
	}

	return json.Unmarshal(raw, m)
}
