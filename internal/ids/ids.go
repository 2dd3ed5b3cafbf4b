// Package ids generates sortable identifiers for every row in the control
// plane. IDs are UUIDv7: 128 bits, time-ordered, safe to use as a primary key
// and as a cursor for pagination without a separate created_at index.
package ids

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is a time-sortable 128-bit identifier.
type ID uuid.UUID

// Nil is the zero-value ID.
var Nil ID

// New returns a new time-ordered ID.
func New() ID {
	u, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if crypto/rand is broken; fall back to a
		// random v4 rather than panic in a request path.
		u = uuid.New()
	}
	return ID(u)
}

// Parse parses a textual ID (e.g. a value supplied by a caller) into an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("ids: invalid id %q: %w", s, err)
	}
	return ID(u), nil
}

// MustParse parses s and panics on error; intended for constants and tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

// Value implements driver.Valuer so an ID can be used directly as a
// database/sql query argument.
func (id ID) Value() (driver.Value, error) {
	return id.String(), nil
}

// Scan implements sql.Scanner so an ID can be populated directly from a
// database/sql row.
func (id *ID) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*id = Nil
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	default:
		return fmt.Errorf("ids: cannot scan %T into ID", src)
	}
}

// MarshalText implements encoding.TextMarshaler for JSON encoding.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON decoding.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Strings converts a slice of IDs to their string form, for binding into
// queries that take a text array (e.g. via pq.Array).
func Strings(in []ID) []string {
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = id.String()
	}
	return out
}
