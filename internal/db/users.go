// This file implements user account data access: CRUD plus the
// username/email lookups the auth and loader packages build on. Password
// hashing lives in internal/credential; this file only stores and compares
// the hash.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

// UserDB handles database operations for users
type UserDB struct {
	db *sql.DB
}

// NewUserDB creates a new UserDB instance
func NewUserDB(db *sql.DB) *UserDB {
	return &UserDB{db: db}
}

const userColumns = "id, organization_id, username, email, display_name, display_color, password_hash, last_login_at, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Username, &u.Email, &u.DisplayName,
		&u.DisplayColor, &u.PasswordHash, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a new user row. Username/email uniqueness is enforced
// by the organization-scoped unique constraints; a conflict surfaces as a
// Postgres unique_violation (SQLSTATE 23505) for the caller to translate.
func (u *UserDB) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID.IsNil() {
		user.ID = ids.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	query := `
		INSERT INTO users (id, organization_id, username, email, display_name, display_color, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := u.db.ExecContext(ctx, query,
		user.ID, user.OrganizationID, user.Username, user.Email,
		user.DisplayName, user.DisplayColor, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, translateUniqueViolation(err, "username or email already in use", "username", "email")
	}
	return user, nil
}

// GetUser retrieves a user by id, scoped to an organization.
func (u *UserDB) GetUser(ctx context.Context, orgID, userID ids.ID) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE organization_id = $1 AND id = $2"
	user, err := scanUser(u.db.QueryRowContext(ctx, query, orgID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username within an organization.
func (u *UserDB) GetUserByUsername(ctx context.Context, orgID ids.ID, username string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE organization_id = $1 AND username = $2"
	user, err := scanUser(u.db.QueryRowContext(ctx, query, orgID, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, errors.InternalServerErrorWrap(err)
	}
	return user, nil
}

// UsersByIDs batch-loads users by id within an organization.
func (u *UserDB) UsersByIDs(ctx context.Context, orgID ids.ID, userIDs []ids.ID) ([]*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE organization_id = $1 AND id = ANY($2)"
	rows, err := u.db.QueryContext(ctx, query, orgID.String(), pq.Array(ids.Strings(userIDs)))
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.InternalServerErrorWrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	return users, nil
}

// UpdateUserFields updates a subset of user fields, keyed by field name.
// Only the fields supplied in updates are touched.
func (u *UserDB) UpdateUserFields(ctx context.Context, orgID, userID ids.ID, updates map[string]interface{}) (*models.User, error) {
	if len(updates) == 0 {
		return u.GetUser(ctx, orgID, userID)
	}

	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1
	for col, val := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, time.Now().UTC())
	argIdx++

	args = append(args, orgID, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE organization_id = $%d AND id = $%d RETURNING %s",
		joinClauses(setClauses, ", "), argIdx, argIdx+1, userColumns)

	user, err := scanUser(u.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, translateUniqueViolation(err, "username or email already in use", "username", "email")
	}
	return user, nil
}

// DeleteUser removes a user and its sessions in a single transaction.
func (u *UserDB) DeleteUser(ctx context.Context, orgID, userID ids.ID) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_sessions WHERE organization_id = $1 AND user_id = $2", orgID, userID); err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM users WHERE organization_id = $1 AND id = $2", orgID, userID)
	if err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFound("user")
	}

	if err := tx.Commit(); err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	return nil
}

// CreateUserTx inserts a new user row within an existing transaction, so the
// auth mutations package can insert the user and its first session
// atomically during registration.
func CreateUserTx(ctx context.Context, tx *sql.Tx, user *models.User) (*models.User, error) {
	if user.ID.IsNil() {
		user.ID = ids.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	query := `
		INSERT INTO users (id, organization_id, username, email, display_name, display_color, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.ExecContext(ctx, query,
		user.ID, user.OrganizationID, user.Username, user.Email,
		user.DisplayName, user.DisplayColor, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, translateUniqueViolation(err, "username already taken", "username")
	}
	return user, nil
}

// TouchUserLastLoginTx sets users.last_login_at = now() within an existing
// transaction, run alongside session creation during login.
func TouchUserLastLoginTx(ctx context.Context, tx *sql.Tx, userID ids.ID) error {
	_, err := tx.ExecContext(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now().UTC(), userID)
	if err != nil {
		return errors.InternalServerErrorWrap(err)
	}
	return nil
}

// translateUniqueViolation maps a Postgres unique_violation (SQLSTATE 23505)
// into an InvalidInput AppError; any other error is wrapped as internal.
func translateUniqueViolation(err error, message string, fields ...string) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return errors.InvalidInput(message, fields...)
	}
	return errors.InternalServerErrorWrap(err)
}

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
