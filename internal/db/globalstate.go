// This file implements access to the GlobalState singleton row: the
// platform defaults new accounts inherit when they have no roles of their
// own, plus the captcha provider credentials.
package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/models"
)

// GlobalStateDB handles database operations for the GlobalState singleton.
type GlobalStateDB struct {
	db *sql.DB
}

// NewGlobalStateDB creates a new GlobalStateDB instance.
func NewGlobalStateDB(db *sql.DB) *GlobalStateDB {
	return &GlobalStateDB{db: db}
}

const globalStateColumns = "id, default_permissions, captcha_provider_url, captcha_secret, session_validity_seconds"

// Get loads the single GlobalState row. There is exactly one row in this
// table; internal/auth reads it through loader.GlobalStateLoader (optionally
// cached) each time it builds AuthData.
func (g *GlobalStateDB) Get(ctx context.Context) (*models.GlobalState, error) {
	query := "SELECT " + globalStateColumns + " FROM global_state LIMIT 1"
	row := g.db.QueryRowContext(ctx, query)

	state := &models.GlobalState{}
	var perms pq.StringArray
	if err := row.Scan(&state.ID, &perms, &state.CaptchaProviderURL, &state.CaptchaSecret, &state.SessionValiditySecs); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("global state")
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	state.DefaultPermissions = []string(perms)
	return state, nil
}
