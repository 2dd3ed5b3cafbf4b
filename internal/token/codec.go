// Package token implements the signed session token codec: a claim set of
// {session_id, issued_at} serialized into an opaque bearer string and
// signed with a process-wide HMAC secret. Deliberately no expiry claim:
// the session row in internal/db is the sole authority on validity, so
// logout revokes immediately rather than waiting for a token to expire.
//
// The signing/verification shape (HMAC-SHA256 via golang-jwt/jwt/v5,
// rejecting any signing method but HMAC to block alg-substitution attacks)
// carries only this package's small claim set.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
)

// Claims is the full claim set a session token carries. No exp claim: see
// package doc.
type Claims struct {
	SessionID ids.ID    `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
}

// jwtClaims adapts Claims to jwt.Claims without embedding
// jwt.RegisteredClaims, which would otherwise pull in an exp field.
type jwtClaims struct {
	SessionID string `json:"session_id"`
	IssuedAt  int64  `json:"issued_at"`
}

func (c jwtClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (c jwtClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}
func (c jwtClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c jwtClaims) GetIssuer() (string, error)              { return "", nil }
func (c jwtClaims) GetSubject() (string, error)             { return "", nil }
func (c jwtClaims) GetAudience() (jwt.ClaimStrings, error)   { return nil, nil }

// Codec signs and verifies session tokens with a single process-wide secret.
type Codec struct {
	secret []byte
}

// NewCodec builds a Codec from the configured jwt_signing_secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Sign serializes claims into a signed bearer string.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		SessionID: claims.SessionID.String(),
		IssuedAt:  claims.IssuedAt.Unix(),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks a bearer string's signature and shape, returning its claims.
// This never touches the database; it is purely a signature/shape check and
// the caller is responsible for loading and validating the session row.
func (c *Codec) Verify(tokenString string) (Claims, *errors.AppError) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, errors.InvalidInput("invalid session token", "sessionToken")
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok {
		return Claims{}, errors.InvalidInput("invalid session token", "sessionToken")
	}

	sessionID, parseErr := ids.Parse(claims.SessionID)
	if parseErr != nil {
		return Claims{}, errors.InvalidInput("invalid session token", "sessionToken")
	}

	return Claims{
		SessionID: sessionID,
		IssuedAt:  time.Unix(claims.IssuedAt, 0).UTC(),
	}, nil
}
