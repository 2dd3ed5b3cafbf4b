package models

import (
	"time"

	"github.com/scuffle-video/api/internal/ids"
)

// Organization is the tenant boundary. Every resource row is scoped by
// organization_id, and every query the control plane issues filters on it.
type Organization struct {
	ID        ids.ID    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
