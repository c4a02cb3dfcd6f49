package balance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dualAgentBot/internal/ports"
)

// DefaultTTL bounds how stale a cached total-balance value may be.
const DefaultTTL = 30 * time.Second

// Cache is a single-flight, TTL-bounded cache over the expensive
// ExchangeClient.GetTotalUSDValue call. It is the only state shared across
// all scheduler timers, so it must be safe for concurrent use: callers
// arriving during an in-flight refresh await that one fetch instead of
// issuing their own.
type Cache struct {
	exchange ports.ExchangeClient
	logger   ports.Logger
	clock    ports.Clock
	ttl      time.Duration

	group singleflight.Group

	mu        sync.Mutex
	value     float64
	fetchedAt time.Time
}

// NewCache creates a balance cache with the given TTL. A zero or negative
// ttl falls back to DefaultTTL.
func NewCache(exchange ports.ExchangeClient, logger ports.Logger, clock ports.Clock, ttl time.Duration) (*Cache, error) {
	if exchange == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for balance cache")
	}
	if clock == nil {
		clock = ports.SystemClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{exchange: exchange, logger: logger, clock: clock, ttl: ttl}, nil
}

// Get returns the account's total USD value, serving from the cache when the
// entry is younger than the TTL and refreshing through a single shared fetch
// otherwise.
func (c *Cache) Get(ctx context.Context) (float64, error) {
	c.mu.Lock()
	if !c.fetchedAt.IsZero() && c.clock.Now().Sub(c.fetchedAt) < c.ttl {
		value := c.value
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	// All concurrent expired callers coalesce on this one key.
	v, err, shared := c.group.Do("total_usd_value", func() (interface{}, error) {
		fresh, err := c.exchange.GetTotalUSDValue(ctx)
		if err != nil {
			return 0.0, fmt.Errorf("balance refresh failed: %w", err)
		}
		c.mu.Lock()
		c.value = fresh
		c.fetchedAt = c.clock.Now()
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return 0, err
	}
	if shared {
		c.logger.Debug(ctx, "Balance refresh result shared across concurrent callers")
	}
	return v.(float64), nil
}

// Invalidate drops the cached value so the next Get refreshes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
