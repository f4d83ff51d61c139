package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/avholt/wxstation/internal/metar"
	"github.com/avholt/wxstation/internal/observability"
	"github.com/avholt/wxstation/pkg/logger"
)

// ReportFetcher retrieves the latest raw report for a station
type ReportFetcher interface {
	FetchRawReport(airportCode string) (string, error)
}

// SnapshotStore persists decoded snapshots for history queries
type SnapshotStore interface {
	SaveSnapshot(snapshot *metar.WeatherSnapshot) error
}

// Broadcaster pushes fresh snapshots to connected clients
type Broadcaster interface {
	BroadcastSnapshot(snapshot *metar.WeatherSnapshot)
}

// Service manages weather data fetching, decoding and caching
type Service struct {
	config      WeatherConfig
	airportCode string
	fetcher     ReportFetcher
	cache       *Cache
	store       SnapshotStore
	broadcaster Broadcaster
	metrics     *observability.Metrics
	clock       clockwork.Clock
	logger      *logger.Logger

	// Service lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex

	// Initial data readiness
	initialDataReady chan struct{}
	initialDataOnce  sync.Once
}

// NewService creates a new weather service. store and broadcaster may be nil
// when history persistence or live push are disabled.
func NewService(configWeather ConfigWeatherConfig, airportCode string, store SnapshotStore, broadcaster Broadcaster, metrics *observability.Metrics, log *logger.Logger) *Service {
	weatherConfig := FromConfigWeatherConfig(configWeather)
	clock := clockwork.NewRealClock()

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		config:           weatherConfig,
		airportCode:      airportCode,
		fetcher:          NewClient(weatherConfig, log),
		cache:            NewCache(weatherConfig, clock, log),
		store:            store,
		broadcaster:      broadcaster,
		metrics:          metrics,
		clock:            clock,
		logger:           log.Named("weather-service"),
		ctx:              ctx,
		cancel:           cancel,
		initialDataReady: make(chan struct{}),
	}
}

// SetClock swaps the time source. Intended for tests; call before Start.
func (s *Service) SetClock(clock clockwork.Clock) {
	s.clock = clock
	s.cache.clock = clock
}

// SetFetcher swaps the report fetcher. Intended for tests; call before Start.
func (s *Service) SetFetcher(fetcher ReportFetcher) {
	s.fetcher = fetcher
}

// Start begins the weather service background operations
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil // Already started
	}

	s.logger.Info("Starting weather service",
		logger.String("airport", s.airportCode),
		logger.Int("refresh_interval_minutes", s.config.RefreshIntervalMinutes))

	// Perform initial fetch
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.performInitialFetch()
	}()

	// Start background refresh goroutine
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.backgroundRefresh()
	}()

	s.started = true
	return nil
}

// Stop gracefully shuts down the weather service
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil // Already stopped
	}

	s.logger.Info("Stopping weather service")
	s.cancel()
	s.wg.Wait()

	s.started = false
	s.logger.Info("Weather service stopped")
	return nil
}

// IsStarted returns whether the service is currently running
func (s *Service) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetState returns the current cached snapshot state.
// Waits for initial data to be available if the service just started.
func (s *Service) GetState() *SnapshotState {
	select {
	case <-s.initialDataReady:
		// Initial data is ready, proceed normally
	case <-time.After(30 * time.Second):
		s.logger.Warn("Timeout waiting for initial weather data")
		return &SnapshotState{
			LastUpdated: s.clock.Now(),
			FetchErrors: []string{"Weather data is still being fetched, please try again in a moment"},
		}
	}

	state := s.cache.Get()
	if state == nil {
		s.logger.Warn("No weather data available after initial fetch completed")
		return &SnapshotState{
			LastUpdated: s.clock.Now(),
			FetchErrors: []string{"Weather data temporarily unavailable"},
		}
	}
	return state
}

// GetSnapshot returns the current snapshot, or nil when none is cached.
func (s *Service) GetSnapshot() *metar.WeatherSnapshot {
	state := s.GetState()
	return state.Snapshot
}

// RefreshNow triggers an immediate refresh of weather data
func (s *Service) RefreshNow() {
	s.logger.Info("Manual weather refresh triggered")
	go s.fetchAndUpdateCache()
}

// GetCacheStats returns cache statistics
func (s *Service) GetCacheStats() map[string]any {
	return s.cache.GetStats()
}

// performInitialFetch performs the first weather data fetch on service start
func (s *Service) performInitialFetch() {
	s.logger.Info("Performing initial weather data fetch",
		logger.String("airport", s.airportCode))

	s.fetchAndUpdateCache()

	s.initialDataOnce.Do(func() {
		close(s.initialDataReady)
		s.logger.Info("Initial weather data fetch completed")
	})
}

// backgroundRefresh runs the periodic weather data refresh
func (s *Service) backgroundRefresh() {
	refreshInterval := time.Duration(s.config.RefreshIntervalMinutes) * time.Minute
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	s.logger.Info("Background weather refresh started",
		logger.String("interval", refreshInterval.String()))

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Background weather refresh stopped")
			return
		case <-ticker.C:
			s.logger.Debug("Periodic weather refresh triggered")
			s.fetchAndUpdateCache()
		}
	}
}

// fetchAndUpdateCache fetches a raw report, runs it through the decoder and
// updates the cache, history storage and websocket clients.
func (s *Service) fetchAndUpdateCache() {
	startTime := s.clock.Now()

	s.logger.Debug("Fetching weather data",
		logger.String("airport", s.airportCode))

	snapshot, err := s.fetchSnapshot()
	s.cache.UpdateFromFetch(&SnapshotState{Snapshot: snapshot}, err)

	if s.metrics != nil {
		s.metrics.FetchDuration.Observe(time.Since(startTime).Seconds())
		if err != nil {
			s.metrics.FetchRequests.WithLabelValues("error").Inc()
		} else {
			s.metrics.FetchRequests.WithLabelValues("success").Inc()
			s.metrics.SnapshotAge.Set(snapshot.Age(s.clock.Now()).Seconds())
		}
	}

	if err != nil {
		s.logger.Warn("Weather data fetch failed",
			logger.String("airport", s.airportCode),
			logger.Error(err))
		return
	}

	if s.store != nil {
		if err := s.store.SaveSnapshot(snapshot); err != nil {
			s.logger.Error("Failed to persist snapshot", logger.Error(err))
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSnapshot(snapshot)
	}

	s.logger.Info("Weather data fetch completed",
		logger.String("airport", s.airportCode),
		logger.String("station", snapshot.Report.StationID),
		logger.String("duration", time.Since(startTime).String()))
}

// fetchSnapshot retrieves and decodes one raw report. The decoder's hard
// failure (unusable header or station) surfaces as a fetch error; all
// field-level absences pass through untouched.
func (s *Service) fetchSnapshot() (*metar.WeatherSnapshot, error) {
	raw, err := s.fetcher.FetchRawReport(s.airportCode)
	if err != nil {
		return nil, err
	}

	report, ok := metar.Parse(raw)
	if !ok {
		if s.metrics != nil {
			s.metrics.ReportsParsed.WithLabelValues("rejected").Inc()
		}
		return nil, fmt.Errorf("unusable report for %s: %q", s.airportCode, raw)
	}
	if s.metrics != nil {
		s.metrics.ReportsParsed.WithLabelValues("ok").Inc()
	}

	// The report carries only day/hour/minute; resolve against the current
	// clock month to get the absolute issuance instant.
	issuedAt := s.clock.Now().UTC()
	if report.Time != nil {
		issuedAt = report.Time.Resolve(s.clock.Now())
	}

	snapshot := metar.ToSnapshot(report, issuedAt, s.config.APIBaseURL)
	return &snapshot, nil
}

// ValidateConfig validates the weather service configuration
func ValidateConfig(config WeatherConfig) error {
	if config.RefreshIntervalMinutes <= 0 {
		return fmt.Errorf("refresh_interval_minutes must be greater than 0")
	}
	if config.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be greater than 0")
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be 0 or greater")
	}
	if config.CacheExpiryMinutes <= 0 {
		return fmt.Errorf("cache_expiry_minutes must be greater than 0")
	}
	if config.APIBaseURL == "" {
		return fmt.Errorf("api_base_url cannot be empty")
	}
	return nil
}
