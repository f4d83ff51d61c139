package weather

import (
	"sync"
	"time"

	"github.com/avholt/wxstation/internal/metar"
)

// WeatherConfig represents the weather service configuration
type WeatherConfig struct {
	RefreshIntervalMinutes int    `toml:"refresh_interval_minutes"`
	APIBaseURL             string `toml:"api_base_url"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	MaxRetries             int    `toml:"max_retries"`
	CacheExpiryMinutes     int    `toml:"cache_expiry_minutes"`
	BreakerMaxFailures     int    `toml:"breaker_max_failures"`
	BreakerOpenSeconds     int    `toml:"breaker_open_seconds"`
}

// ConfigWeatherConfig represents the config package's WeatherConfig.
// This is used to avoid circular imports.
type ConfigWeatherConfig struct {
	RefreshIntervalMinutes int
	APIBaseURL             string
	RequestTimeoutSeconds  int
	MaxRetries             int
	CacheExpiryMinutes     int
	BreakerMaxFailures     int
	BreakerOpenSeconds     int
}

// FromConfigWeatherConfig converts a config.WeatherConfig to weather.WeatherConfig
func FromConfigWeatherConfig(cfg ConfigWeatherConfig) WeatherConfig {
	return WeatherConfig(cfg)
}

// DefaultWeatherConfig returns the default weather configuration
func DefaultWeatherConfig() WeatherConfig {
	return WeatherConfig{
		RefreshIntervalMinutes: 10,
		APIBaseURL:             "https://aviationweather.gov/api/data",
		RequestTimeoutSeconds:  10,
		MaxRetries:             2,
		CacheExpiryMinutes:     15,
		BreakerMaxFailures:     5,
		BreakerOpenSeconds:     60,
	}
}

// SnapshotState is the cache payload: the current snapshot (if any) plus
// fetch bookkeeping exposed over the API.
type SnapshotState struct {
	Snapshot    *metar.WeatherSnapshot `json:"snapshot,omitempty"`
	LastUpdated time.Time              `json:"last_updated"`
	FetchErrors []string               `json:"fetch_errors,omitempty"`
}

// snapshotCache holds the cached state with an expiry instant
type snapshotCache struct {
	state     *SnapshotState
	expiresAt time.Time
	mu        sync.RWMutex
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{}
}

// Get returns the cached state (thread-safe)
func (sc *snapshotCache) Get() *SnapshotState {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.state
}

// Set updates the cached state (thread-safe)
func (sc *snapshotCache) Set(state *SnapshotState, expiresAt time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.state = state
	sc.expiresAt = expiresAt
}

// IsExpired checks if the cached state has expired
func (sc *snapshotCache) IsExpired(now time.Time) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return now.After(sc.expiresAt)
}
