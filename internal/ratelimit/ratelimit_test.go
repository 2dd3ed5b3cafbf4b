package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scuffle-video/api/internal/ids"
)

func TestAllowRespectsBurst(t *testing.T) {
	limiter := New(map[Resource]Config{
		"recording.delete": {RequestsPerSecond: 0, Burst: 2},
	})
	org := ids.New()

	assert.True(t, limiter.Allow(org, "recording.delete"))
	assert.True(t, limiter.Allow(org, "recording.delete"))
	assert.False(t, limiter.Allow(org, "recording.delete"), "third call should exceed the burst of 2")
}

func TestAllowIsPerOrganization(t *testing.T) {
	limiter := New(map[Resource]Config{
		"recording.delete": {RequestsPerSecond: 0, Burst: 1},
	})
	orgA := ids.New()
	orgB := ids.New()

	assert.True(t, limiter.Allow(orgA, "recording.delete"))
	assert.False(t, limiter.Allow(orgA, "recording.delete"))
	assert.True(t, limiter.Allow(orgB, "recording.delete"), "a different organization has its own bucket")
}

func TestUnconfiguredResourceGetsFallbackBudget(t *testing.T) {
	limiter := New(map[Resource]Config{})
	org := ids.New()

	assert.True(t, limiter.Allow(org, "unknown.resource"))
}
