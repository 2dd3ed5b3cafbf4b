package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopVerifierAcceptsNonEmptyToken(t *testing.T) {
	ok, err := (NoopVerifier{}).Verify(context.Background(), "any-token", "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopVerifierRejectsEmptyToken(t *testing.T) {
	ok, err := (NoopVerifier{}).Verify(context.Background(), "", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPVerifierPostsFormAndParsesSuccess(t *testing.T) {
	var gotSecret, gotResponse, gotIP string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotSecret = r.FormValue("secret")
		gotResponse = r.FormValue("response")
		gotIP = r.FormValue("remoteip")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	verifier := NewHTTPVerifier(server.URL, "shh")
	ok, err := verifier.Verify(context.Background(), "user-token", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "shh", gotSecret)
	assert.Equal(t, "user-token", gotResponse)
	assert.Equal(t, "10.0.0.1", gotIP)
}

func TestHTTPVerifierReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false}`))
	}))
	defer server.Close()

	verifier := NewHTTPVerifier(server.URL, "shh")
	ok, err := verifier.Verify(context.Background(), "bad-token", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPVerifierWithNoProviderURLIsUnavailable(t *testing.T) {
	verifier := NewHTTPVerifier("", "shh")
	_, err := verifier.Verify(context.Background(), "token", "")
	require.Error(t, err)
}
