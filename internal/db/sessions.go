// This file implements session storage: the durable row that is the sole
// authority on whether a session token is still valid. The signed token
// itself carries no expiry, so every request that authenticates via a
// session token re-checks this row's expires_at.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

// SessionDB handles database operations for sessions.
type SessionDB struct {
	db *sql.DB
}

// NewSessionDB creates a new SessionDB instance.
func NewSessionDB(db *sql.DB) *SessionDB {
	return &SessionDB{db: db}
}

const sessionColumns = "id, organization_id, user_id, expires_at, last_used_at, created_at"

func scanSession(row interface{ Scan(...interface{}) error }) (*models.Session, error) {
	s := &models.Session{}
	if err := row.Scan(&s.ID, &s.OrganizationID, &s.UserID, &s.ExpiresAt, &s.LastUsedAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSession inserts a new session row, minted at login time with the
// validity window the caller supplies.
func (s *SessionDB) CreateSession(ctx context.Context, orgID, userID ids.ID, validity time.Duration) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:             ids.New(),
		OrganizationID: orgID,
		UserID:         userID,
		ExpiresAt:      now.Add(validity),
		LastUsedAt:     now,
		CreatedAt:      now,
	}

	query := `
		INSERT INTO user_sessions (id, organization_id, user_id, expires_at, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.OrganizationID, session.UserID,
		session.ExpiresAt, session.LastUsedAt, session.CreatedAt,
	)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	return session, nil
}

// CreateSessionTx inserts a new session row within an existing transaction,
// used by login/register so the session insert and the user write it
// accompanies commit or roll back together.
func CreateSessionTx(ctx context.Context, tx *sql.Tx, orgID, userID ids.ID, validity time.Duration) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:             ids.New(),
		OrganizationID: orgID,
		UserID:         userID,
		ExpiresAt:      now.Add(validity),
		LastUsedAt:     now,
		CreatedAt:      now,
	}

	query := `
		INSERT INTO user_sessions (id, organization_id, user_id, expires_at, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		session.ID, session.OrganizationID, session.UserID,
		session.ExpiresAt, session.LastUsedAt, session.CreatedAt,
	)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	return session, nil
}

// UpdateSessionLastUsedReturning runs
// `UPDATE user_sessions SET last_used_at = now() WHERE id = $1 RETURNING *`:
// it returns (nil, nil) when no row matches, distinct from a real error, so
// the caller can tell "no such session" from "session present but expired".
func UpdateSessionLastUsedReturning(ctx context.Context, sqlDB *sql.DB, sessionID ids.ID) (*models.Session, error) {
	query := "UPDATE user_sessions SET last_used_at = $1 WHERE id = $2 RETURNING " + sessionColumns
	session, err := scanSession(sqlDB.QueryRowContext(ctx, query, time.Now().UTC(), sessionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	return session, nil
}

// GetSession retrieves a session by ID regardless of expiry; callers decide
// how to treat an expired session (it is never usable). A missing row
// returns InvalidSession.
func (s *SessionDB) GetSession(ctx context.Context, sessionID ids.ID) (*models.Session, error) {
	query := "SELECT " + sessionColumns + " FROM user_sessions WHERE id = $1"
	session, err := scanSession(s.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.InvalidSession()
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	return session, nil
}

// TouchSession updates last_used_at, called whenever a session successfully
// authenticates a request.
func (s *SessionDB) TouchSession(ctx context.Context, sessionID ids.ID) error {
	_, err := s.db.ExecContext(ctx, "UPDATE user_sessions SET last_used_at = $1 WHERE id = $2", time.Now().UTC(), sessionID)
	if err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	return nil
}

// DeleteSession removes a session row. Deletion is idempotent: deleting a
// session that no longer exists is not an error, since logout should
// succeed even against a stale or already-expired token.
func (s *SessionDB) DeleteSession(ctx context.Context, sessionID ids.ID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM user_sessions WHERE id = $1", sessionID)
	if err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	return nil
}

// DeleteExpiredSessions purges sessions past their expiry. Expired rows are
// already unusable (IsValid is false) so nothing depends on this running;
// it exists as a maintenance hook for operators who want to reclaim the
// table space.
func (s *SessionDB) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM user_sessions WHERE expires_at < $1", time.Now().UTC())
	if err != nil {
		return 0, errors.InternalServerErrorWrap(err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
