package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPermissionDeniedStatusCode(t *testing.T) {
	err := PermissionDenied("recording", "delete")
	assert.Equal(t, http.StatusForbidden, err.StatusCode)
	assert.Equal(t, CodePermissionDenied, err.Code)
}

func TestResourceExhaustedGRPCMapping(t *testing.T) {
	err := ResourceExhausted("rate limit exceeded")
	st := err.GRPCStatus()
	assert.Equal(t, codes.ResourceExhausted, st.Code())
}

func TestInvalidSessionIsUnauthenticated(t *testing.T) {
	err := InvalidSession()
	assert.Equal(t, http.StatusUnauthorized, err.StatusCode)
	assert.Equal(t, codes.Unauthenticated, err.GRPCStatus().Code())
}

func TestWrapPreservesUnderlyingMessage(t *testing.T) {
	underlying := status.Error(codes.Unknown, "boom")
	err := InternalServerErrorWrap(underlying)
	assert.Contains(t, err.Details, "boom")
}

func TestInternalServerErrorWrapPreservesAppError(t *testing.T) {
	original := InvalidInput("username already taken")
	wrapped := InternalServerErrorWrap(original)
	assert.Same(t, original, wrapped)
	assert.Equal(t, CodeInvalidInput, wrapped.Code)
}

func TestInvalidInputCarriesFieldNames(t *testing.T) {
	err := InvalidInput("invalid username or password", "username", "password")
	assert.Equal(t, []string{"username", "password"}, err.Fields)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestErrorStringIncludesDetails(t *testing.T) {
	err := NewWithDetails(CodeInvalidInput, "bad username", "must be 3-32 chars")
	assert.Contains(t, err.Error(), "bad username")
	assert.Contains(t, err.Error(), "must be 3-32 chars")
}
