package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessTokenSecretRoundTrip(t *testing.T) {
	hasher := &TokenHasher{bcryptCost: 4}

	plain, hashed, err := hasher.GenerateAccessTokenSecret()
	require.NoError(t, err)
	assert.NotEmpty(t, plain)
	assert.NotEqual(t, plain, hashed)
	assert.True(t, hasher.VerifyToken(plain, hashed))
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	hasher := &TokenHasher{bcryptCost: 4}

	_, hashed, err := hasher.GenerateAccessTokenSecret()
	require.NoError(t, err)

	assert.False(t, hasher.VerifyToken("wrong-secret", hashed))
}
