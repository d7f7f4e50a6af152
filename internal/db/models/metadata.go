// Package models - metadata.go defines Metadata, the open JSON document stored in
// user_activity_logs.metadata.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
)

// Metadata is an open key/value document persisted as JSONB.
// Key order is not preserved.
type Metadata map[string]any

// Value implements driver.Valuer. A nil Metadata is stored as an empty object.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner for JSON/JSONB columns.
func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", src)
	}

	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	*m = out
	return nil
}

// Clone returns a shallow copy. Nested maps and slices are shared.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a new document holding m overlaid with every key in over.
// Keys present in both take the value from over.
func (m Metadata) Merge(over Metadata) Metadata {
	out := make(Metadata, len(m)+len(over))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Float reads a numeric value, accepting the float64 that encoding/json produces
// as well as Go numeric types set in process.
func (m Metadata) Float(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool reads a boolean value.
func (m Metadata) Bool(key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}
