package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	applogger "PricePulse/pkg/logger"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ResponseCache stores encoded responses keyed by endpoint, snapshot
// version and request. A new snapshot version makes older entries unreachable.
type ResponseCache struct {
	store BytesCache
	ttl   time.Duration
	log   *applogger.Logger
}

func NewResponseCache(store BytesCache, ttl time.Duration, log *applogger.Logger) *ResponseCache {
	if log == nil {
		log = applogger.NewNop()
	}
	return &ResponseCache{store: store, ttl: ttl, log: log}
}

// Key builds the cache key for one request.
func Key(endpoint string, version uint64, req any) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("pricepulse:%s:v%d:%s", endpoint, version, hex.EncodeToString(sum[:12])), nil
}

// Get returns a cached body. Backend errors count as a miss.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	b, ok, err := c.store.GetBytes(ctx, key)
	if err != nil {
		c.log.Warn("cache get failed", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	return b, ok
}

// Set stores body under key; failures are logged and dropped.
func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.SetBytes(ctx, key, body, c.ttl); err != nil {
		c.log.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}
