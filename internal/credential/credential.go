// Package credential implements account validation and hashing primitives:
// username, password and email validation; slow salted password hashing;
// and display color generation. Password hashing follows the bcrypt
// pattern (bcrypt.GenerateFromPassword / bcrypt.CompareHashAndPassword);
// display-name sanitization reuses bluemonday.
package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/bcrypt"

	"github.com/scuffle-video/api/internal/errors"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 32
	passwordMinLength = 8
	passwordMaxLength = 128
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var sanitizer = bluemonday.StrictPolicy()

// ValidateUsername enforces the length range and allowed character class,
// returning a specific human-readable reason per violation.
func ValidateUsername(s string) *errors.AppError {
	if len(s) < usernameMinLength || len(s) > usernameMaxLength {
		return errors.InvalidInput(fmt.Sprintf("username must be between %d and %d characters", usernameMinLength, usernameMaxLength), "username")
	}
	if !usernamePattern.MatchString(s) {
		return errors.InvalidInput("username may only contain letters, digits and underscores", "username")
	}
	return nil
}

// ValidatePassword enforces minimum length/entropy rules.
func ValidatePassword(s string) *errors.AppError {
	if len(s) < passwordMinLength || len(s) > passwordMaxLength {
		return errors.InvalidInput(fmt.Sprintf("password must be between %d and %d characters", passwordMinLength, passwordMaxLength), "password")
	}
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.InvalidInput("password must contain both letters and digits", "password")
	}
	return nil
}

// ValidateEmail performs a structural check only (no mailbox verification).
func ValidateEmail(s string) *errors.AppError {
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.InvalidInput("email is not a valid address", "email")
	}
	return nil
}

// Sanitize strips markup from a user-supplied, display-facing string (e.g.
// display_name) before it is persisted, so a later render of it can't carry
// an XSS payload.
func Sanitize(s string) string {
	return strings.TrimSpace(sanitizer.Sanitize(s))
}

// HashPassword produces a slow, salted hash suitable for storage.
// cost is bcrypt's work factor; callers pass the configured
// password_hash_cost (falling back to bcrypt.DefaultCost when unset).
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("credential: hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword performs a constant-time comparison of candidate against
// the stored hash.
func VerifyPassword(stored, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}

// displayColorPalette is an enumerated set of colors new accounts are
// assigned a pseudorandom member from.
var displayColorPalette = []string{
	"#E03131", "#C2255C", "#9C36B5", "#6741D9", "#3B5BDB",
	"#1971C2", "#0C8599", "#099268", "#2F9E44", "#66A80F",
	"#F08C00", "#E8590C",
}

// GenerateDisplayColor picks a color from displayColorPalette using
// crypto/rand, not math/rand: this runs during account creation and
// shouldn't be predictable from the server's process start time.
func GenerateDisplayColor() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(displayColorPalette))))
	if err != nil {
		return "", fmt.Errorf("credential: generate display color: %w", err)
	}
	return displayColorPalette[n.Int64()], nil
}

// NormalizeUsername lowercases a username for storage and lookup. Usernames
// are unique case-insensitively; the stored form is always lowercase.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail lowercases an email address for storage.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
