// Package captcha defines the call shape internal/auth uses to verify a
// human-interaction token before login/register proceed. A full provider
// integration is intentionally out of scope: this package supplies the
// interface every caller depends on, a thin HTTP client for the Cloudflare
// Turnstile siteverify wire shape, and a NoopVerifier for deployments/tests
// that don't wire a real provider.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/scuffle-video/api/internal/errors"
)

// Verifier checks a human-interaction token against a provider.
type Verifier interface {
	Verify(ctx context.Context, token, userIP string) (bool, error)
}

// NoopVerifier accepts every non-empty token. Useful for local development
// and for deployments that have no captcha_provider_url configured.
type NoopVerifier struct{}

// Verify implements Verifier.
func (NoopVerifier) Verify(_ context.Context, token, _ string) (bool, error) {
	return token != "", nil
}

// siteverifyResponse is the subset of Turnstile's siteverify response this
// package cares about.
type siteverifyResponse struct {
	Success bool `json:"success"`
}

// HTTPVerifier posts to a Turnstile-shaped siteverify endpoint
// (captcha_provider_url/captcha_secret, loaded once from the process
// configuration for the whole deployment) and reports whether the token was
// accepted.
type HTTPVerifier struct {
	ProviderURL string
	Secret      string
	Client      *http.Client
}

// NewHTTPVerifier builds an HTTPVerifier with a bounded-timeout client.
func NewHTTPVerifier(providerURL, secret string) *HTTPVerifier {
	return &HTTPVerifier{
		ProviderURL: providerURL,
		Secret:      secret,
		Client:      &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify implements Verifier.
func (v *HTTPVerifier) Verify(ctx context.Context, token, userIP string) (bool, error) {
	if v.ProviderURL == "" {
		return false, errors.Unavailable("captcha provider")
	}
	form := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	if userIP != "" {
		form.Set("remoteip", userIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.ProviderURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var parsed siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, err
	}
	return parsed.Success, nil
}
