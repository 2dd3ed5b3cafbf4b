// Package models holds the row types shared by internal/db, internal/auth
// and internal/dispatcher. Field names and db struct tags follow the
// database column names.
package models

import (
	"time"

	"github.com/scuffle-video/api/internal/ids"
)

// User is an account that can authenticate and own sessions.
type User struct {
	ID             ids.ID    `json:"id" db:"id"`
	OrganizationID ids.ID    `json:"organization_id" db:"organization_id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	DisplayName    string    `json:"display_name" db:"display_name"`
	DisplayColor   string    `json:"display_color" db:"display_color"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Session is the durable, server-side record of a login. It is the sole
// authority on whether a session token is still valid; the token itself
// carries no expiry.
type Session struct {
	ID             ids.ID    `json:"id" db:"id"`
	OrganizationID ids.ID    `json:"organization_id" db:"organization_id"`
	UserID         ids.ID    `json:"user_id" db:"user_id"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	LastUsedAt     time.Time `json:"last_used_at" db:"last_used_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// IsValid reports whether a session is still usable: now < expires_at. This
// is the sole authority on session validity; the signed token carries no
// expiry of its own.
func (s Session) IsValid() bool {
	return time.Now().UTC().Before(s.ExpiresAt)
}

// AuthData is the resolved identity attached to a request context once a
// session token has been verified and the session row has been loaded.
type AuthData struct {
	Session         Session
	User            User
	UserRoles       []string
	UserPermissions []string
}

// GlobalState is the process-wide singleton row holding platform defaults.
type GlobalState struct {
	ID                  ids.ID   `json:"id" db:"id"`
	DefaultPermissions  []string `json:"default_permissions" db:"default_permissions"`
	CaptchaProviderURL  string   `json:"-" db:"captcha_provider_url"`
	CaptchaSecret       string   `json:"-" db:"captcha_secret"`
	SessionValiditySecs int64    `json:"session_validity_seconds" db:"session_validity_seconds"`
}

// AccessToken authenticates a gRPC caller and scopes what it may do within
// an organization.
type AccessToken struct {
	ID             ids.ID             `json:"id" db:"id"`
	OrganizationID ids.ID             `json:"organization_id" db:"organization_id"`
	SecretHash     string             `json:"-" db:"secret_hash"`
	Scopes         AccessTokenScopes  `json:"scopes" db:"scopes"`
	Tags           Tags               `json:"tags" db:"tags"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
	LastUsedAt     *time.Time         `json:"last_used_at,omitempty" db:"last_used_at"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
}

// AccessTokenScope grants one Permission over one Resource to an AccessToken.
type AccessTokenScope struct {
	Resource   string `json:"resource"`
	Permission string `json:"permission"`
}
