// Package cache provides a Redis read-through cache for benchmark closes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"equity-lab/internal/domain"
	"equity-lab/internal/observability"
	"equity-lab/internal/storage"
)

// TTLs for cached close ranges.
const (
	HighVolumeTTL = 5 * time.Minute
	DefaultTTL    = 10 * time.Minute
)

// highVolumeSymbols are refreshed more often.
var highVolumeSymbols = map[string]struct{}{
	"AAPL": {}, "MSFT": {}, "GOOGL": {}, "AMZN": {}, "META": {}, "TSLA": {}, "NVDA": {},
	"BTC-USD": {}, "ETH-USD": {},
	"^GSPC": {}, "^IXIC": {}, "^DJI": {},
}

// TTLFor returns the cache TTL for symbol.
func TTLFor(symbol string) time.Duration {
	if _, ok := highVolumeSymbols[strings.ToUpper(symbol)]; ok {
		return HighVolumeTTL
	}
	return DefaultTTL
}

// Key returns the cache key of a close range.
func Key(symbol string, start, end int64) string {
	return fmt.Sprintf("closes:%s:%d:%d", strings.ToUpper(symbol), start, end)
}

// Stats counts cache lookups.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hitRate"`
}

// DailyCloseCache decorates a DailyCloseStore with a Redis read-through cache.
// Redis failures are logged and fall through to the backing store.
type DailyCloseCache struct {
	storage.DailyCloseStore

	client *redis.Client
	logger *log.Logger

	mu    sync.Mutex
	stats Stats
}

// NewDailyCloseCache wraps store. A nil logger uses log.Default().
func NewDailyCloseCache(store storage.DailyCloseStore, client *redis.Client, logger *log.Logger) *DailyCloseCache {
	if logger == nil {
		logger = log.Default()
	}
	return &DailyCloseCache{
		DailyCloseStore: store,
		client:          client,
		logger:          logger,
	}
}

// Compile-time interface check.
var _ storage.DailyCloseStore = (*DailyCloseCache)(nil)

// GetByTimeRange serves closes from Redis when present, otherwise from the
// backing store, caching non-empty results.
func (c *DailyCloseCache) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.DailyClose, error) {
	key := Key(symbol, start, end)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var closes []*domain.DailyClose
		jsonErr := json.Unmarshal(data, &closes)
		if jsonErr == nil {
			c.record(true, false)
			return closes, nil
		}
		c.logger.Printf("cache: discard corrupt entry %s: %v", key, jsonErr)
		c.record(false, true)
	case errors.Is(err, redis.Nil):
		c.record(false, false)
	default:
		c.logger.Printf("cache: get %s: %v", key, err)
		c.record(false, true)
	}

	closes, err := c.DailyCloseStore.GetByTimeRange(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(closes) == 0 {
		return closes, nil
	}

	if payload, err := json.Marshal(closes); err == nil {
		if err := c.client.Set(ctx, key, payload, TTLFor(symbol)).Err(); err != nil {
			c.logger.Printf("cache: set %s: %v", key, err)
		}
	}
	return closes, nil
}

// InsertBulk writes through to the backing store and drops cached ranges of
// the affected symbols.
func (c *DailyCloseCache) InsertBulk(ctx context.Context, closes []*domain.DailyClose) error {
	if err := c.DailyCloseStore.InsertBulk(ctx, closes); err != nil {
		return err
	}

	symbols := make(map[string]struct{})
	for _, cl := range closes {
		symbols[strings.ToUpper(cl.Symbol)] = struct{}{}
	}
	for symbol := range symbols {
		if err := c.invalidate(ctx, symbol); err != nil {
			c.logger.Printf("cache: invalidate %s: %v", symbol, err)
		}
	}
	return nil
}

// invalidate deletes every cached range of symbol.
func (c *DailyCloseCache) invalidate(ctx context.Context, symbol string) error {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("closes:%s:*", symbol), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Stats returns a snapshot of the lookup counters.
func (c *DailyCloseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *DailyCloseCache) record(hit, failed bool) {
	observability.RecordCacheResult("daily_closes", hit)

	c.mu.Lock()
	defer c.mu.Unlock()

	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	if failed {
		c.stats.Errors++
	}
	if total := c.stats.Hits + c.stats.Misses; total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total)
	}
}
