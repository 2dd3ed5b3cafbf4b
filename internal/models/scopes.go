package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AccessTokenScopes round-trips []AccessTokenScope through a JSONB column,
// the same Value/Scan pattern Tags uses.
type AccessTokenScopes []AccessTokenScope

func (s AccessTokenScopes) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]AccessTokenScope(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *AccessTokenScopes) Scan(src interface{}) error {
	if src == nil {
		*s = AccessTokenScopes{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into AccessTokenScopes", src)
	}
	if len(raw) == 0 {
		*s = AccessTokenScopes{}
		return nil
	}
	var out []AccessTokenScope
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("models: unmarshal access token scopes: %w", err)
	}
	*s = out
	return nil
}
