package cache_test

import (
	"testing"
	"time"

	"github.com/prepflow/prepflow-backend/pkg/cache"
	"github.com/stretchr/testify/assert"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New()

	c.Set("plan", "latest", "payload")

	value, ok := c.Get("plan", "latest", 0)
	assert.True(t, ok)
	assert.Equal(t, "payload", value)

	_, ok = c.Get("plan", "other", 0)
	assert.False(t, ok)

	_, ok = c.Get("forecast", "latest", 0)
	assert.False(t, ok, "kinds do not share a namespace")
}

func TestCache_MaxAge(t *testing.T) {
	c := cache.New()
	c.Set("plan", "latest", "payload")

	_, ok := c.Get("plan", "latest", time.Hour)
	assert.True(t, ok)

	time.Sleep(10 * time.Millisecond)
	_, ok = c.Get("plan", "latest", time.Millisecond)
	assert.False(t, ok, "stale entries are misses")

	// A zero max age ignores entry age entirely
	_, ok = c.Get("plan", "latest", 0)
	assert.True(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	c := cache.New()
	c.Set("plan", "a", 1)
	c.Set("plan", "b", 2)
	c.Set("product", "a", 3)
	assert.Equal(t, 3, c.Len())

	c.Invalidate("plan", "a")
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("plan", "a", 0)
	assert.False(t, ok)

	c.InvalidateKind("plan")
	assert.Equal(t, 1, c.Len())
	_, ok = c.Get("product", "a", 0)
	assert.True(t, ok)
}
