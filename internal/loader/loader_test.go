package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scuffle-video/api/internal/errors"
	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

type countingUserFetcher struct {
	calls int32
	user  *models.User
	err   error
}

func (f *countingUserFetcher) GetUserByUsername(ctx context.Context, orgID ids.ID, username string) (*models.User, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.user, f.err
}

func TestUserByUsernameLoaderCoalescesConcurrentCalls(t *testing.T) {
	fetcher := &countingUserFetcher{user: &models.User{ID: ids.New(), Username: "alice"}}
	l := NewUserByUsernameLoader(fetcher)
	orgID := ids.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := l.Load(context.Background(), orgID, "alice")
			require.NoError(t, err)
			assert.Equal(t, "alice", user.Username)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, fetcher.calls, int32(20))
	assert.GreaterOrEqual(t, fetcher.calls, int32(1))
}

func TestUserByUsernameLoaderMissingUserIsNilNotError(t *testing.T) {
	fetcher := &countingUserFetcher{err: errors.NotFound("user")}
	l := NewUserByUsernameLoader(fetcher)

	user, err := l.Load(context.Background(), ids.New(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserByUsernameLoaderPropagatesOtherErrors(t *testing.T) {
	fetcher := &countingUserFetcher{err: errors.InternalServerError("db down")}
	l := NewUserByUsernameLoader(fetcher)

	_, err := l.Load(context.Background(), ids.New(), "alice")
	require.Error(t, err)
}

type countingGlobalStateFetcher struct {
	calls int32
	state *models.GlobalState
}

func (f *countingGlobalStateFetcher) Get(ctx context.Context) (*models.GlobalState, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.state, nil
}

func TestGlobalStateLoaderCoalescesConcurrentCalls(t *testing.T) {
	fetcher := &countingGlobalStateFetcher{state: &models.GlobalState{ID: ids.New(), DefaultPermissions: []string{"recording.get"}}}
	l := NewGlobalStateLoader(fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := l.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{"recording.get"}, state.DefaultPermissions)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, fetcher.calls, int32(20))
}
