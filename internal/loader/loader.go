// Package loader coalesces single-key lookups: concurrent callers asking
// for the same key within the same instant share one database round trip.
// golang.org/x/sync/singleflight gives this without a bespoke batching
// goroutine.
//
// This is narrower than a batching dataloader: singleflight merges duplicate
// in-flight calls for the *same* key rather than accumulating a window of
// distinct keys into one `WHERE key = ANY($)` query. For the two call
// sites this package covers (username lookup and the GlobalState
// singleton) that is the coalescing that matters: both are looked up by
// one key per request, and the win is collapsing concurrent duplicates of
// that single key, not batching distinct keys together.
package loader

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

// userByUsernameFetcher is the subset of *db.UserDB the loader needs.
type userByUsernameFetcher interface {
	GetUserByUsername(ctx context.Context, orgID ids.ID, username string) (*models.User, error)
}

// globalStateFetcher is the subset of *db.GlobalStateDB the loader needs.
type globalStateFetcher interface {
	Get(ctx context.Context) (*models.GlobalState, error)
}

// UserByUsernameLoader coalesces concurrent lookups of the same
// (organization, username) pair into a single query.
type UserByUsernameLoader struct {
	fetcher userByUsernameFetcher
	group   singleflight.Group
}

// NewUserByUsernameLoader builds a loader backed by fetcher.
func NewUserByUsernameLoader(fetcher userByUsernameFetcher) *UserByUsernameLoader {
	return &UserByUsernameLoader{fetcher: fetcher}
}

// Load returns the user for (orgID, username), or (nil, nil) if no such user
// exists. Absence is not an error here, since the auth mutations need to
// distinguish "no such user" from a failed lookup to render their
// user-enumeration-proof error message.
func (l *UserByUsernameLoader) Load(ctx context.Context, orgID ids.ID, username string) (*models.User, error) {
	key := orgID.String() + ":" + username
	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		user, err := l.fetcher.GetUserByUsername(ctx, orgID, username)
		if err != nil {
			if isNotFound(err) {
				return (*models.User)(nil), nil
			}
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.User), nil
}

// globalStateCache is the subset of *cache.Cache the loader uses to share
// the GlobalState row across processes.
type globalStateCache interface {
	IsEnabled() bool
	Get(ctx context.Context, key string, target interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const globalStateCacheKey = "global_state"

// globalStateCacheTTL is short: GlobalState changes rarely but drives
// default permissions, so a stale read should age out quickly.
const globalStateCacheTTL = 30 * time.Second

// GlobalStateLoader coalesces concurrent reads of the singleton GlobalState
// row, optionally layered over a shared cross-process cache.
type GlobalStateLoader struct {
	fetcher globalStateFetcher
	cache   globalStateCache
	group   singleflight.Group
}

// NewGlobalStateLoader builds a loader backed by fetcher.
func NewGlobalStateLoader(fetcher globalStateFetcher) *GlobalStateLoader {
	return &GlobalStateLoader{fetcher: fetcher}
}

// WithCache layers a shared cache over the database fetch, so concurrent
// processes serving the same deployment hit Redis instead of each holding
// the row hot in Postgres.
func (l *GlobalStateLoader) WithCache(c globalStateCache) *GlobalStateLoader {
	l.cache = c
	return l
}

// Load returns the GlobalState singleton.
func (l *GlobalStateLoader) Load(ctx context.Context) (*models.GlobalState, error) {
	v, err, _ := l.group.Do("global_state", func() (interface{}, error) {
		if l.cache != nil && l.cache.IsEnabled() {
			var cached models.GlobalState
			if err := l.cache.Get(ctx, globalStateCacheKey, &cached); err == nil {
				return &cached, nil
			}
		}
		state, err := l.fetcher.Get(ctx)
		if err != nil {
			return nil, err
		}
		if l.cache != nil && l.cache.IsEnabled() {
			_ = l.cache.Set(ctx, globalStateCacheKey, state, globalStateCacheTTL)
		}
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.GlobalState), nil
}

// isNotFound reports whether err is the errors.AppError this package's
// fetchers return for a missing row.
func isNotFound(err error) bool {
	appErr, ok := err.(*errors.AppError)
	return ok && appErr.Code == errors.CodeNotFound
}
