package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"mercatus/internal/domain/hierarchy"
	"mercatus/internal/domain/purchasesale"
	"mercatus/pkg/logger"
)

// Compile-time check that ResultCache implements purchasesale.ResultCache.
var _ purchasesale.ResultCache = (*ResultCache)(nil)

// ResultCache holds finished aggregations for a short fixed TTL, keyed by
// the full filter. Entries are stored zstd-compressed; a large item-level
// result set compresses well and the cache stays small. Expiry is the only
// invalidation, entries are never partially updated.
type ResultCache struct {
	ttl     time.Duration
	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu      sync.RWMutex
	entries map[string]resultEntry
}

type resultEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewResultCache creates the cache. A non-positive ttl disables it in all
// but name: every entry is born expired.
func NewResultCache(ttl time.Duration) (*ResultCache, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ResultCache{
		ttl:     ttl,
		encoder: encoder,
		decoder: decoder,
		entries: make(map[string]resultEntry),
	}, nil
}

// GetNodes returns the cached rows for a key, if present and fresh.
func (c *ResultCache) GetNodes(ctx context.Context, key string) ([]hierarchy.NodeResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}

	raw, err := c.decoder.DecodeAll(entry.payload, nil)
	if err != nil {
		logger.Warn(ctx, "result cache decompress failed", "key", key, "error", err)
		c.evict(key)
		return nil, false
	}
	var rows []hierarchy.NodeResult
	if err := json.Unmarshal(raw, &rows); err != nil {
		logger.Warn(ctx, "result cache decode failed", "key", key, "error", err)
		c.evict(key)
		return nil, false
	}
	return rows, true
}

// SetNodes stores rows under a key. Encoding failures only cost the cache
// hit, never the request.
func (c *ResultCache) SetNodes(ctx context.Context, key string, rows []hierarchy.NodeResult) {
	raw, err := json.Marshal(rows)
	if err != nil {
		logger.Warn(ctx, "result cache encode failed", "key", key, "error", err)
		return
	}
	payload := c.encoder.EncodeAll(raw, nil)

	c.mu.Lock()
	c.entries[key] = resultEntry{payload: payload, expiresAt: time.Now().Add(c.ttl)}
	c.sweepLocked()
	c.mu.Unlock()
}

func (c *ResultCache) evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// sweepLocked drops expired entries. Called with the write lock held; the
// map stays bounded by the working set of distinct filters per TTL window.
func (c *ResultCache) sweepLocked() {
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
