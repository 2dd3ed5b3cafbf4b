// This file implements access-token lookup: the gRPC resource surface's
// only authentication mechanism. The bearer secret itself is never stored,
// only its bcrypt hash (internal/auth.TokenHasher), so this file loads
// candidate rows by id and leaves secret comparison to the caller.
package db

import (
	"context"
	"database/sql"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

// AccessTokenDB handles database operations for access tokens.
type AccessTokenDB struct {
	db *sql.DB
}

// NewAccessTokenDB creates a new AccessTokenDB instance.
func NewAccessTokenDB(db *sql.DB) *AccessTokenDB {
	return &AccessTokenDB{db: db}
}

const accessTokenColumns = "id, organization_id, secret_hash, scopes, tags, created_at, last_used_at, expires_at"

func scanAccessToken(row interface{ Scan(...interface{}) error }) (*models.AccessToken, error) {
	t := &models.AccessToken{}
	err := row.Scan(&t.ID, &t.OrganizationID, &t.SecretHash, &t.Scopes, &t.Tags, &t.CreatedAt, &t.LastUsedAt, &t.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetAccessToken loads a token row by id, regardless of organization: the
// caller (the gRPC metadata interceptor) doesn't know the organization until
// after the token resolves it.
func (a *AccessTokenDB) GetAccessToken(ctx context.Context, tokenID ids.ID) (*models.AccessToken, error) {
	query := "SELECT " + accessTokenColumns + " FROM access_tokens WHERE id = $1"
	token, err := scanAccessToken(a.db.QueryRowContext(ctx, query, tokenID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.PermissionDenied("access_token", "authenticate")
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	return token, nil
}

// CreateAccessToken inserts a new access token row; the plain secret is
// minted and hashed by internal/auth.TokenHasher before this is called.
func (a *AccessTokenDB) CreateAccessToken(ctx context.Context, token *models.AccessToken) (*models.AccessToken, error) {
	if token.ID.IsNil() {
		token.ID = ids.New()
	}
	if token.Tags == nil {
		token.Tags = models.Tags{}
	}
	if token.Scopes == nil {
		token.Scopes = models.AccessTokenScopes{}
	}

	query := `
		INSERT INTO access_tokens (id, organization_id, secret_hash, scopes, tags, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := a.db.ExecContext(ctx, query, token.ID, token.OrganizationID, token.SecretHash, token.Scopes, token.Tags, token.ExpiresAt)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	return token, nil
}

// TouchAccessToken updates last_used_at after a successful authentication.
func (a *AccessTokenDB) TouchAccessToken(ctx context.Context, tokenID ids.ID) error {
	_, err := a.db.ExecContext(ctx, "UPDATE access_tokens SET last_used_at = now() WHERE id = $1", tokenID)
	if err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	return nil
}

// RevokeAccessToken deletes a token row, immediately invalidating it for any
// future gRPC call.
func (a *AccessTokenDB) RevokeAccessToken(ctx context.Context, orgID, tokenID ids.ID) error {
	result, err := a.db.ExecContext(ctx, "DELETE FROM access_tokens WHERE organization_id = $1 AND id = $2", orgID, tokenID)
	if err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFound("access_token")
	}
	return nil
}
