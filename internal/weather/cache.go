package weather

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/avholt/wxstation/pkg/logger"
)

// Cache manages the current snapshot state with thread-safe operations
type Cache struct {
	cache  *snapshotCache
	config WeatherConfig
	clock  clockwork.Clock
	logger *logger.Logger
}

// NewCache creates a new snapshot cache manager
func NewCache(config WeatherConfig, clock clockwork.Clock, log *logger.Logger) *Cache {
	return &Cache{
		cache:  newSnapshotCache(),
		config: config,
		clock:  clock,
		logger: log.Named("weather-cache"),
	}
}

// Get returns the current cached state, or nil if nothing has been fetched yet
func (c *Cache) Get() *SnapshotState {
	state := c.cache.Get()
	if state == nil {
		return nil
	}
	if state.Snapshot == nil && len(state.FetchErrors) == 0 {
		return nil
	}
	return state
}

// Set updates the cache with new state
func (c *Cache) Set(state *SnapshotState) {
	expiryDuration := time.Duration(c.config.CacheExpiryMinutes) * time.Minute
	expiresAt := c.clock.Now().Add(expiryDuration)
	c.cache.Set(state, expiresAt)

	c.logger.Debug("Snapshot state cached",
		logger.Time("last_updated", state.LastUpdated),
		logger.Time("expires_at", expiresAt),
		logger.Int("error_count", len(state.FetchErrors)))
}

// UpdateFromFetch merges a fetch outcome into the cached state. A failed
// fetch keeps the previous snapshot (stale data beats no data until expiry)
// and records the error.
func (c *Cache) UpdateFromFetch(state *SnapshotState, fetchErr error) {
	current := c.cache.Get()

	next := &SnapshotState{
		LastUpdated: c.clock.Now(),
	}
	if fetchErr != nil {
		if current != nil {
			next.Snapshot = current.Snapshot
		}
		next.FetchErrors = []string{fetchErr.Error()}
		c.logger.Warn("Keeping previous snapshot after failed fetch", logger.Error(fetchErr))
	} else {
		next.Snapshot = state.Snapshot
	}

	c.Set(next)
}

// IsExpired checks if the cached state has expired
func (c *Cache) IsExpired() bool {
	return c.cache.IsExpired(c.clock.Now())
}

// Invalidate clears the cache
func (c *Cache) Invalidate() {
	c.cache.Set(nil, time.Time{})
	c.logger.Info("Snapshot cache invalidated")
}

// GetStats returns cache statistics
func (c *Cache) GetStats() map[string]any {
	state := c.cache.Get()
	stats := map[string]any{
		"has_data":     state != nil,
		"is_expired":   c.IsExpired(),
		"error_count":  0,
		"last_updated": time.Time{},
	}
	if state != nil {
		stats["error_count"] = len(state.FetchErrors)
		stats["last_updated"] = state.LastUpdated
		stats["has_snapshot"] = state.Snapshot != nil
	}
	return stats
}
