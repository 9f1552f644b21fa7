package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.SetWithTTL("k", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheInvalidatePrefix(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("owner:1", "a")
	c.Set("owner:2", "b")
	c.Set("share:1", "c")

	c.Invalidate("owner:")

	_, ok := c.Get("owner:1")
	assert.False(t, ok)
	_, ok = c.Get("share:1")
	assert.True(t, ok)
}

func TestCacheGetOrSet(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	calls := 0
	fn := func(ctx context.Context) (interface{}, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrSet(context.Background(), "k", fn)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.GetOrSet(context.Background(), "k", fn)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	_, err = c.GetOrSet(context.Background(), "err", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
}
