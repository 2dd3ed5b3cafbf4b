package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scuffle-video/api/internal/ids"
	"github.com/scuffle-video/api/internal/models"
)

func TestCheckScopeAllowsExactMatch(t *testing.T) {
	token := &models.AccessToken{
		ID: ids.New(),
		Scopes: []models.AccessTokenScope{
			{Resource: string(ResourceRecording), Permission: string(PermissionDelete)},
		},
	}

	err := CheckScope(Kind(ResourceRecording, PermissionDelete), token)
	assert.Nil(t, err)
}

func TestCheckScopeDeniesMissingPermission(t *testing.T) {
	token := &models.AccessToken{
		ID: ids.New(),
		Scopes: []models.AccessTokenScope{
			{Resource: string(ResourceRecording), Permission: string(PermissionGet)},
		},
	}

	err := CheckScope(Kind(ResourceRecording, PermissionDelete), token)
	if assert.NotNil(t, err) {
		assert.Equal(t, "PERMISSION_DENIED", err.Code)
	}
}

func TestCheckScopeWildcardPermission(t *testing.T) {
	token := &models.AccessToken{
		ID: ids.New(),
		Scopes: []models.AccessTokenScope{
			{Resource: string(ResourceS3Bucket), Permission: "*"},
		},
	}

	err := CheckScope(Kind(ResourceS3Bucket, PermissionTag), token)
	assert.Nil(t, err)
}
