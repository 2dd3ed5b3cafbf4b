// Package reqctx implements the per-connection request context: a single
// mutable AuthData slot that is read often (every authorization check) and
// written rarely (login, logout, token refresh). The connection outlives a
// single HTTP request (it backs a GraphQL/gRPC session), so the slot lives
// on a long-lived per-connection struct guarded by an RWMutex rather than in
// a request-scoped context value.
package reqctx

import (
	"sync"

	"github.com/scuffle-video/api/internal/models"
)

// RequestContext holds the mutable authentication state for one connection.
// Reads (Auth) may happen concurrently from multiple goroutines serving the
// same connection; writes (SetAuth, ResetAuth) are serialized against both
// reads and each other.
type RequestContext struct {
	mu   sync.RWMutex
	auth *models.AuthData
}

// New returns an unauthenticated RequestContext.
func New() *RequestContext {
	return &RequestContext{}
}

// Auth returns the currently attached AuthData, if any.
func (c *RequestContext) Auth() (*models.AuthData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.auth == nil {
		return nil, false
	}
	return c.auth, true
}

// SetAuth attaches auth as the connection's identity, replacing any prior
// value.
func (c *RequestContext) SetAuth(auth *models.AuthData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = auth
}

// ResetAuth clears the connection's identity (logout).
func (c *RequestContext) ResetAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = nil
}
