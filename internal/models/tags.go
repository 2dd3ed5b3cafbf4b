package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Tags is the key/value label map every tenant-scoped resource row carries.
// It round-trips through a JSONB column, since lib/pq has no native map
// binding. Value/Scan marshal/unmarshal it the same way internal/cache
// already marshals arbitrary values for Redis.
type Tags map[string]string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]string(t))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src interface{}) error {
	if src == nil {
		*t = Tags{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into Tags", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	out := map[string]string{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("models: unmarshal tags: %w", err)
	}
	*t = out
	return nil
}
