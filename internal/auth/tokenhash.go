// Package auth mints and verifies AccessToken secrets: the bearer string a
// gRPC caller presents is random, high-entropy, and shown to the holder only
// once; only its bcrypt hash is stored, so a stolen database dump can't be
// turned back into working tokens.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// TokenHasher generates and verifies AccessToken secrets.
type TokenHasher struct {
	bcryptCost int
}

// NewTokenHasher creates a new token hasher.
func NewTokenHasher() *TokenHasher {
	return &TokenHasher{bcryptCost: bcrypt.DefaultCost}
}

// HashToken hashes a token using bcrypt for secure storage.
func (t *TokenHasher) HashToken(token string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(token), t.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyToken verifies a plain token against a hashed token.
func (t *TokenHasher) VerifyToken(plainToken, hashedToken string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken)) == nil
}

// GenerateAccessTokenSecret generates a new access token secret: 48 bytes
// (384 bits) of entropy, bcrypt-hashed for storage. The plain secret is
// returned once and must be shown to the caller immediately; only the hash
// is kept.
func (t *TokenHasher) GenerateAccessTokenSecret() (plainSecret string, hashedSecret string, err error) {
	bytes := make([]byte, 48)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate access token secret: %w", err)
	}

	plainSecret = base64.URLEncoding.EncodeToString(bytes)
	hashedSecret, err = t.HashToken(plainSecret)
	if err != nil {
		return "", "", err
	}
	return plainSecret, hashedSecret, nil
}
