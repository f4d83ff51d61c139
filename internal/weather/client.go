package weather

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/avholt/wxstation/pkg/logger"
)

// Client fetches raw surface-weather reports over HTTP. Transient failures
// are retried with exponential backoff; sustained failure trips a circuit
// breaker so a dead upstream is not hammered on every refresh tick.
type Client struct {
	config     WeatherConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logger.Logger
}

// NewClient creates a new raw report client
func NewClient(config WeatherConfig, log *logger.Logger) *Client {
	settings := gobreaker.Settings{
		Name:    "wx-fetch",
		Timeout: time.Duration(config.BreakerOpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.BreakerMaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Weather fetch circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  log.Named("weather-client"),
	}
}

// FetchRawReport fetches the latest raw METAR line for the given station.
func (c *Client) FetchRawReport(airportCode string) (string, error) {
	url := fmt.Sprintf("%s/metar?ids=%s&format=raw", c.config.APIBaseURL, airportCode)

	body, err := c.breaker.Execute(func() (any, error) {
		return c.fetchWithRetry(url, airportCode)
	})
	if err != nil {
		return "", err
	}

	// The raw endpoint returns one report per line; the first is the latest.
	raw, _, _ := strings.Cut(body.(string), "\n")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("no report data found for %s", airportCode)
	}
	return raw, nil
}

// fetchWithRetry performs the HTTP request with retry logic and exponential backoff
func (c *Client) fetchWithRetry(url string, airportCode string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying weather data fetch",
				logger.String("airport", airportCode),
				logger.Int("attempt", attempt),
				logger.String("backoff", backoffDuration.String()))
			time.Sleep(backoffDuration)
		}

		resp, err := c.httpClient.Get(url)
		if err != nil {
			lastErr = fmt.Errorf("error making request to weather API: %w", err)
			c.logger.Warn("Weather API request failed, may retry",
				logger.String("airport", airportCode),
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			c.logger.Warn("Weather API returned non-OK status, may retry",
				logger.String("airport", airportCode),
				logger.Int("status_code", resp.StatusCode),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("error reading weather data: %w", err)
			c.logger.Warn("Failed to read weather response, may retry",
				logger.String("airport", airportCode),
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		if attempt > 0 {
			c.logger.Info("Successfully fetched weather data after retries",
				logger.String("airport", airportCode),
				logger.Int("attempts_needed", attempt+1))
		}
		return string(body), nil
	}

	c.logger.Error("All attempts to fetch weather data failed",
		logger.String("airport", airportCode),
		logger.Error(lastErr),
		logger.Int("max_attempts", c.config.MaxRetries+1))
	return "", lastErr
}
