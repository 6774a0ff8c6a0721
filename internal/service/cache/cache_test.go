package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache(10)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, c.SetBytes(ctx, "b", []byte("2"), 0))

	b, ok, err := c.GetBytes(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", string(b))

	now = now.Add(2 * time.Second)
	_, ok, _ = c.GetBytes(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "b")
	assert.True(t, ok, "zero ttl never expires")
}

func TestTTLCacheBounded(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(2)
	_ = c.SetBytes(ctx, "a", nil, 0)
	_ = c.SetBytes(ctx, "b", nil, 0)
	_ = c.SetBytes(ctx, "c", nil, 0)
	assert.LessOrEqual(t, c.Len(), 2)
	_, ok, _ := c.GetBytes(ctx, "c")
	assert.True(t, ok)
}

func TestKeyDependsOnVersionAndRequest(t *testing.T) {
	req := map[string]any{"productName": "iPhone 15"}
	k1, err := Key("analyze", 1, req)
	require.NoError(t, err)
	k2, _ := Key("analyze", 2, req)
	k3, _ := Key("analyze", 1, map[string]any{"productName": "iPhone 14"})
	k4, _ := Key("analyze", 1, req)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, k1, k4)
	assert.Contains(t, k1, "pricepulse:analyze:v1:")
}

type failingCache struct{}

func (failingCache) GetBytes(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}

func (failingCache) SetBytes(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}

func TestResponseCache(t *testing.T) {
	ctx := context.Background()
	rc := NewResponseCache(NewTTLCache(0), time.Minute, nil)
	rc.Set(ctx, "k", []byte("body"))
	b, ok := rc.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "body", string(b))

	down := NewResponseCache(failingCache{}, time.Minute, nil)
	down.Set(ctx, "k", []byte("body"))
	_, ok = down.Get(ctx, "k")
	assert.False(t, ok)

	var none *ResponseCache
	_, ok = none.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewRedisCacheFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping 127.0.0.1:1")
}
