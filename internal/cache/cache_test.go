package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheMissesAndDropsWrites(t *testing.T) {
	c, err := NewCache(Config{Enabled: false})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.IsEnabled())
	assert.NoError(t, c.Set(context.Background(), "key", map[string]string{"a": "1"}, time.Minute))

	var target map[string]string
	err = c.Get(context.Background(), "key", &target)
	assert.ErrorIs(t, err, ErrMiss)
}
