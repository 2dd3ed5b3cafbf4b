package reqctx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

func TestAuthIsAbsentInitially(t *testing.T) {
	ctx := New()
	_, ok := ctx.Auth()
	assert.False(t, ok)
}

func TestSetAuthThenResetAuth(t *testing.T) {
	ctx := New()
	auth := &models.AuthData{User: models.User{ID: ids.New()}}

	ctx.SetAuth(auth)
	got, ok := ctx.Auth()
	assert.True(t, ok)
	assert.Equal(t, auth.User.ID, got.User.ID)

	ctx.ResetAuth()
	_, ok = ctx.Auth()
	assert.False(t, ok)
}

func TestConcurrentReadsDoNotRace(t *testing.T) {
	ctx := New()
	ctx.SetAuth(&models.AuthData{User: models.User{ID: ids.New()}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx.Auth()
		}()
	}
	wg.Wait()
}
