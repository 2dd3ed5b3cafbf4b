// This file implements the session-lifecycle mutations: Login,
// LoginWithToken, Register and Logout. Login and Register start with a
// captcha check and a lowercase/normalize step. Register then validates its
// fields, checks the username loader, creates the user and session in one
// transaction and mints the token before committing. Login checks the
// username loader and password, creates the session in a transaction and
// mints the token after committing. LoginWithToken and Logout verify a
// session token instead of a captcha. Login, LoginWithToken and Register
// can optionally attach AuthData to the connection's RequestContext.
package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/scuffle-video/api/internal/captcha"
	"github.com/scuffle-video/api/internal/clock"
	"github.com/scuffle-video/api/internal/credential"
	"github.com/scuffle-video/api/internal/db"
	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/loader"
	"github.com/scuffle-video/api/internal/logger"
	"github.com/scuffle-video/api/internal/models"
	"github.com/scuffle-video/api/internal/reqctx"
	"github.com/scuffle-video/api/internal/token"
)

// defaultSessionValidity is used when a caller doesn't request a specific
// validity window: 7 days.
const defaultSessionValidity = 7 * 24 * time.Hour

// Service wires the session-lifecycle mutations to their dependencies. One
// Service is shared across every connection; RequestContext is passed in
// per-call rather than held on the Service, since it is connection-scoped.
type Service struct {
	sqlDB           *sql.DB
	sessions        *db.SessionDB
	users           *db.UserDB
	userLoader      *loader.UserByUsernameLoader
	globalLoader    *loader.GlobalStateLoader
	codec           *token.Codec
	hashCost        int
	defaultValidity time.Duration
	captcha         captcha.Verifier
}

// NewService builds the auth Service. defaultValidity is the session window
// used when a mutation doesn't request one; zero selects
// defaultSessionValidity.
func NewService(
	sqlDB *sql.DB,
	sessions *db.SessionDB,
	users *db.UserDB,
	userLoader *loader.UserByUsernameLoader,
	globalLoader *loader.GlobalStateLoader,
	codec *token.Codec,
	hashCost int,
	defaultValidity time.Duration,
	verifier captcha.Verifier,
) *Service {
	if defaultValidity <= 0 {
		defaultValidity = defaultSessionValidity
	}
	return &Service{
		sqlDB:           sqlDB,
		sessions:        sessions,
		users:           users,
		userLoader:      userLoader,
		globalLoader:    globalLoader,
		codec:           codec,
		hashCost:        hashCost,
		defaultValidity: defaultValidity,
		captcha:         verifier,
	}
}

// SessionResult is what every mutation in this file returns: a signed token
// plus the session/user rows it was minted from.
type SessionResult struct {
	Session *models.Session
	User    *models.User
	Token   string
}

func (s *Service) mintToken(session *models.Session) (string, *errors.AppError) {
	signed, err := s.codec.Sign(token.Claims{SessionID: session.ID, IssuedAt: clock.Now()})
	if err != nil {
		return "", errors.InternalServerErrorWrap(err)
	}
	return signed, nil
}

// buildAuthData resolves the permission set a freshly authenticated
// connection carries. The control plane has no per-user role assignment
// table (see DESIGN.md), so every account, new or returning, inherits
// GlobalState.DefaultPermissions with no additional roles.
func (s *Service) buildAuthData(ctx context.Context, session *models.Session, user *models.User) (*models.AuthData, *errors.AppError) {
	state, err := s.globalLoader.Load(ctx)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	return &models.AuthData{
		Session:         *session,
		User:            *user,
		UserRoles:       []string{},
		UserPermissions: state.DefaultPermissions,
	}, nil
}

// Login authenticates with a username/password pair. orgID scopes the
// lookup: usernames are unique per organization, not globally. validity of
// zero selects defaultSessionValidity. If updateContext is true, the result
// becomes rc's authenticated identity.
func (s *Service) Login(ctx context.Context, rc *reqctx.RequestContext, orgID ids.ID, username, password, captchaToken, userIP string, validity time.Duration, updateContext bool) (*SessionResult, *errors.AppError) {
	ok, err := s.captcha.Verify(ctx, captchaToken, userIP)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	if !ok {
		return nil, errors.InvalidInput("captcha token is invalid", "captchaToken")
	}

	username = credential.NormalizeUsername(username)
	user, loadErr := s.userLoader.Load(ctx, orgID, username)
	if loadErr != nil {
		return nil, errors.InternalServerErrorWrap(loadErr)
	}
	if user == nil || !credential.VerifyPassword(user.PasswordHash, password) {
		return nil, errors.InvalidInput("invalid username or password", "username", "password")
	}

	if validity <= 0 {
		validity = s.defaultValidity
	}

	tx, txErr := s.sqlDB.BeginTx(ctx, nil)
	if txErr != nil {
		return nil, errors.InternalServerErrorWrap(txErr)
	}
	defer tx.Rollback()

	session, sessErr := db.CreateSessionTx(ctx, tx, orgID, user.ID, validity)
	if sessErr != nil {
		logger.Auth().Error().Err(sessErr).Str("user_id", user.ID.String()).Msg("failed to create session")
		return nil, errors.InternalServerErrorWrap(sessErr)
	}
	if err := db.TouchUserLastLoginTx(ctx, tx, user.ID); err != nil {
		logger.Auth().Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update last login")
		return nil, errors.InternalServerErrorWrap(err)
	}
	if err := tx.Commit(); err != nil {
		logger.Auth().Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to commit login transaction")
		return nil, errors.InternalServerErrorWrap(err)
	}

	signed, signErr := s.mintToken(session)
	if signErr != nil {
		return nil, signErr
	}

	if updateContext {
		authData, aerr := s.buildAuthData(ctx, session, user)
		if aerr != nil {
			return nil, aerr
		}
		rc.SetAuth(authData)
	}

	return &SessionResult{Session: session, User: user, Token: signed}, nil
}

// LoginWithToken re-authenticates an existing session token, refreshing
// last_used_at. It never mints a new token; the caller's token is echoed
// back unchanged.
func (s *Service) LoginWithToken(ctx context.Context, rc *reqctx.RequestContext, sessionToken string, updateContext bool) (*SessionResult, *errors.AppError) {
	claims, verifyErr := s.codec.Verify(sessionToken)
	if verifyErr != nil {
		return nil, errors.InvalidInput("invalid session token", "sessionToken")
	}

	session, err := db.UpdateSessionLastUsedReturning(ctx, s.sqlDB, claims.SessionID)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	if session == nil {
		return nil, errors.InvalidInput("invalid session token", "sessionToken")
	}
	if !session.IsValid() {
		return nil, errors.InvalidSession()
	}

	if updateContext {
		user, uErr := s.users.GetUser(ctx, session.OrganizationID, session.UserID)
		if uErr != nil {
			return nil, errors.InternalServerErrorWrap(uErr)
		}
		authData, aerr := s.buildAuthData(ctx, session, user)
		if aerr != nil {
			return nil, aerr
		}
		rc.SetAuth(authData)
	}

	return &SessionResult{Session: session, Token: sessionToken}, nil
}

// Register creates a new user account plus its first session, atomically.
func (s *Service) Register(ctx context.Context, rc *reqctx.RequestContext, orgID ids.ID, username, password, email, captchaToken, userIP string, validity time.Duration, updateContext bool) (*SessionResult, *errors.AppError) {
	ok, err := s.captcha.Verify(ctx, captchaToken, userIP)
	if err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}
	if !ok {
		return nil, errors.InvalidInput("captcha token is invalid", "captchaToken")
	}

	displayName := username
	username = credential.NormalizeUsername(username)
	email = credential.NormalizeEmail(email)

	if verr := credential.ValidateUsername(username); verr != nil {
		return nil, verr
	}
	if verr := credential.ValidatePassword(password); verr != nil {
		return nil, verr
	}
	if verr := credential.ValidateEmail(email); verr != nil {
		return nil, verr
	}

	existing, loadErr := s.userLoader.Load(ctx, orgID, username)
	if loadErr != nil {
		return nil, errors.InternalServerErrorWrap(loadErr)
	}
	if existing != nil {
		return nil, errors.InvalidInput("username already taken", "username")
	}

	displayColor, colorErr := credential.GenerateDisplayColor()
	if colorErr != nil {
		return nil, errors.InternalServerErrorWrap(colorErr)
	}
	passwordHash, hashErr := credential.HashPassword(password, s.hashCost)
	if hashErr != nil {
		return nil, errors.InternalServerErrorWrap(hashErr)
	}

	if validity <= 0 {
		validity = s.defaultValidity
	}

	tx, txErr := s.sqlDB.BeginTx(ctx, nil)
	if txErr != nil {
		return nil, errors.InternalServerErrorWrap(txErr)
	}
	defer tx.Rollback()

	user := &models.User{
		OrganizationID: orgID,
		Username:       username,
		Email:          email,
		DisplayName:    credential.Sanitize(displayName),
		DisplayColor:   displayColor,
		PasswordHash:   passwordHash,
	}
	user, createErr := db.CreateUserTx(ctx, tx, user)
	if createErr != nil {
		return nil, errors.InternalServerErrorWrap(createErr)
	}

	session, sessErr := db.CreateSessionTx(ctx, tx, orgID, user.ID, validity)
	if sessErr != nil {
		logger.Auth().Error().Err(sessErr).Str("user_id", user.ID.String()).Msg("failed to create session")
		return nil, errors.InternalServerErrorWrap(sessErr)
	}

	signed, signErr := s.mintToken(session)
	if signErr != nil {
		return nil, signErr
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.InternalServerErrorWrap(err)
	}

	if updateContext {
		authData, aerr := s.buildAuthData(ctx, session, user)
		if aerr != nil {
			return nil, aerr
		}
		rc.SetAuth(authData)
	}

	return &SessionResult{Session: session, User: user, Token: signed}, nil
}

// Logout deletes a session row, invalidating its token immediately.
// sessionToken is optional: when empty, the connection's own authenticated
// session (from rc) is logged out instead, and rc's identity is cleared.
func (s *Service) Logout(ctx context.Context, rc *reqctx.RequestContext, sessionToken string) *errors.AppError {
	var sessionID ids.ID
	resetContext := false

	if sessionToken != "" {
		claims, verifyErr := s.codec.Verify(sessionToken)
		if verifyErr != nil {
			return errors.InvalidInput("invalid session token", "sessionToken")
		}
		sessionID = claims.SessionID
	} else {
		auth, ok := rc.Auth()
		if !ok {
			return errors.NotLoggedIn()
		}
		sessionID = auth.Session.ID
		resetContext = true
	}

	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		logger.Auth().Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to delete session")
		return errors.InternalServerErrorWrap(err)
	}

	if resetContext {
		rc.ResetAuth()
	}
	return nil
}
