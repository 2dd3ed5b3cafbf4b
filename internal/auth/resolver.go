package auth

import (
	"context"
	"strings"

	"github.com/scuffle-video/api/internal/clock"
	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

// accessTokenStore is the subset of *db.AccessTokenDB the resolver needs,
// kept as an interface so tests can substitute a fake without pulling in
// database/sql.
type accessTokenStore interface {
	GetAccessToken(ctx context.Context, tokenID ids.ID) (*models.AccessToken, error)
	TouchAccessToken(ctx context.Context, tokenID ids.ID) error
}

// Resolver turns a gRPC bearer string into a verified *models.AccessToken.
// The bearer format is "<token id>.<plain secret>": the id lets the resolver
// fetch exactly one candidate row instead of scanning every hash, and the
// secret is checked against that row's bcrypt hash via TokenHasher.
type Resolver struct {
	store  accessTokenStore
	hasher *TokenHasher
}

// NewResolver builds an access-token Resolver.
func NewResolver(store accessTokenStore, hasher *TokenHasher) *Resolver {
	return &Resolver{store: store, hasher: hasher}
}

// Resolve verifies bearer and returns the AccessToken it names, or
// PermissionDenied if the bearer is malformed, unknown, expired, or doesn't
// match the stored hash.
func (r *Resolver) Resolve(ctx context.Context, bearer string) (*models.AccessToken, *errors.AppError) {
	idPart, secretPart, ok := strings.Cut(bearer, ".")
	if !ok || idPart == "" || secretPart == "" {
		return nil, errors.PermissionDenied("access_token", "authenticate")
	}

	tokenID, err := ids.Parse(idPart)
	if err != nil {
		return nil, errors.PermissionDenied("access_token", "authenticate")
	}

	token, aerr := r.store.GetAccessToken(ctx, tokenID)
	if aerr != nil {
		return nil, toAppError(aerr)
	}

	if token.ExpiresAt != nil && token.ExpiresAt.Before(clock.Now()) {
		return nil, errors.PermissionDenied("access_token", "authenticate")
	}
	if !r.hasher.VerifyToken(secretPart, token.SecretHash) {
		return nil, errors.PermissionDenied("access_token", "authenticate")
	}

	_ = r.store.TouchAccessToken(ctx, token.ID)
	return token, nil
}

func toAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.InternalServerErrorWrap(err)
}
