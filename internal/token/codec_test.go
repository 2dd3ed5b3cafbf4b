package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scuffle-video/api/internal/clock"
	"github.com/scuffle-video/api/internal/ids"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret")
	sessionID := ids.New()
	claims := Claims{SessionID: sessionID, IssuedAt: clock.Now()}

	signed, err := codec.Sign(claims)
	require.NoError(t, err)

	verified, verr := codec.Verify(signed)
	require.Nil(t, verr)
	assert.Equal(t, sessionID, verified.SessionID)
	assert.WithinDuration(t, claims.IssuedAt, verified.IssuedAt, time.Second)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	codec := NewCodec("test-secret")
	signed, err := codec.Sign(Claims{SessionID: ids.New(), IssuedAt: clock.Now()})
	require.NoError(t, err)

	sigStart := strings.LastIndex(signed, ".") + 1
	replacement := "A"
	if signed[sigStart] == 'A' {
		replacement = "B"
	}
	tampered := signed[:sigStart] + replacement + signed[sigStart+1:]
	_, verr := codec.Verify(tampered)
	assert.NotNil(t, verr)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewCodec("secret-a").Sign(Claims{SessionID: ids.New(), IssuedAt: clock.Now()})
	require.NoError(t, err)

	_, verr := NewCodec("secret-b").Verify(signed)
	assert.NotNil(t, verr)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec := NewCodec("test-secret")
	_, verr := codec.Verify("not-a-jwt")
	assert.NotNil(t, verr)
}
