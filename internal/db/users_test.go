package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

func TestCreateUserSuccess(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	userDB := NewUserDB(sqlDB)
	orgID := ids.New()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), orgID, "alice", "alice@example.com", "Alice", "#7C3AED", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user, err := userDB.CreateUser(context.Background(), &models.User{
		OrganizationID: orgID,
		Username:       "alice",
		Email:          "alice@example.com",
		DisplayName:    "Alice",
		DisplayColor:   "#7C3AED",
		PasswordHash:   "hashed",
	})

	require.NoError(t, err)
	assert.False(t, user.ID.IsNil())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserTranslatesUniqueViolation(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	userDB := NewUserDB(sqlDB)
	orgID := ids.New()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	_, err = userDB.CreateUser(context.Background(), &models.User{OrganizationID: orgID, Username: "alice"})
	require.Error(t, err)
}

func TestGetUserByUsernameNotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	userDB := NewUserDB(sqlDB)
	orgID := ids.New()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(orgID, "nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "username", "email", "display_name", "display_color", "password_hash", "created_at", "updated_at"}))

	_, err = userDB.GetUserByUsername(context.Background(), orgID, "nobody")
	require.Error(t, err)
}

func TestUpdateUserFieldsNoopReturnsCurrent(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	userDB := NewUserDB(sqlDB)
	orgID, userID := ids.New(), ids.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(orgID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "username", "email", "display_name", "display_color", "password_hash", "last_login_at", "created_at", "updated_at"}).
			AddRow(userID.String(), orgID.String(), "alice", "alice@example.com", "Alice", "#000", "hash", nil, now, now))

	user, err := userDB.UpdateUserFields(context.Background(), orgID, userID, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestDeleteUserNotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	userDB := NewUserDB(sqlDB)
	orgID, userID := ids.New(), ids.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_sessions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = userDB.DeleteUser(context.Background(), orgID, userID)
	require.Error(t, err)
}
