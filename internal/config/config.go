package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server   ServerConfig   `toml:"server"`   // HTTP server settings
	Station  StationConfig  `toml:"station"`  // Physical station and runway settings
	Weather  WeatherConfig  `toml:"wx"`       // Weather data fetching and caching settings
	Logging  LoggingConfig  `toml:"logging"`  // Application logging settings
	Storage  StorageConfig  `toml:"storage"`  // Data persistence settings
	Evidence EvidenceConfig `toml:"evidence"` // Calculation evidence signing settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // Origins allowed for CORS requests (["*"] for all)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Keep-alive idle timeout
	AdditionalPorts    []int    `toml:"additional_ports"`      // Additional HTTP ports to listen on
}

// StationConfig contains the monitored station and its runways
type StationConfig struct {
	AirportCode   string         `toml:"airport_code"`   // ICAO code of the airport (e.g., "CYYZ")
	Latitude      float64        `toml:"latitude"`       // Station latitude in decimal degrees
	Longitude     float64        `toml:"longitude"`      // Station longitude in decimal degrees
	ElevationFeet int            `toml:"elevation_feet"` // Station elevation above sea level in feet
	Runways       []RunwayConfig `toml:"runways"`        // Runways used for wind component calculations
}

// RunwayConfig describes a single runway end
type RunwayConfig struct {
	Ident          string  `toml:"ident"`            // Runway identifier (e.g., "24L")
	MagneticHdgDeg float64 `toml:"magnetic_hdg_deg"` // Magnetic heading of the runway in degrees
}

// WeatherConfig contains weather data fetching and caching configuration
type WeatherConfig struct {
	RefreshIntervalMinutes int    `toml:"refresh_interval_minutes"` // Weather data refresh interval in minutes
	APIBaseURL             string `toml:"api_base_url"`             // Base URL for the raw report API
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`  // HTTP request timeout in seconds
	MaxRetries             int    `toml:"max_retries"`              // Maximum retry attempts for failed requests
	CacheExpiryMinutes     int    `toml:"cache_expiry_minutes"`     // How long to keep cached data if refresh fails
	BreakerMaxFailures     int    `toml:"breaker_max_failures"`     // Consecutive failures before the circuit opens
	BreakerOpenSeconds     int    `toml:"breaker_open_seconds"`     // How long an open circuit waits before a trial request
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type           string `toml:"type"`             // Storage backend type (currently only "sqlite" is supported)
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files
	MaxHistoryRows int    `toml:"max_history_rows"` // Maximum snapshot rows returned by the history API
}

// EvidenceConfig contains calculation evidence signing configuration
type EvidenceConfig struct {
	KeyPath string `toml:"key_path"` // Path to the Ed25519 seed file; empty generates an ephemeral key
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	portsSeen := map[int]bool{c.Server.Port: true}
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLiteBasePath == "" {
		return fmt.Errorf("sqlite_base_path is required when storage type is sqlite")
	}
	if c.Storage.MaxHistoryRows <= 0 {
		c.Storage.MaxHistoryRows = 60
	}

	if err := c.ValidateStation(); err != nil {
		return err
	}

	if err := c.ValidateWeather(); err != nil {
		return err
	}

	return nil
}

// ValidateStation validates the station configuration
func (c *Config) ValidateStation() error {
	if c.Station.AirportCode == "" {
		return fmt.Errorf("station airport_code is required")
	}
	if len(c.Station.AirportCode) != 4 {
		return fmt.Errorf("station airport_code must be a 4-letter ICAO identifier: %s", c.Station.AirportCode)
	}
	if c.Station.Latitude < -90 || c.Station.Latitude > 90 {
		return fmt.Errorf("invalid station latitude: %f", c.Station.Latitude)
	}
	if c.Station.Longitude < -180 || c.Station.Longitude > 180 {
		return fmt.Errorf("invalid station longitude: %f", c.Station.Longitude)
	}
	if c.Station.ElevationFeet < -2000 || c.Station.ElevationFeet > 30000 {
		return fmt.Errorf("station elevation out of typical range: %d ft", c.Station.ElevationFeet)
	}

	identSeen := make(map[string]bool)
	for i, rwy := range c.Station.Runways {
		if rwy.Ident == "" {
			return fmt.Errorf("runway #%d: ident is required", i+1)
		}
		if identSeen[rwy.Ident] {
			return fmt.Errorf("runway #%d: duplicate ident: %s", i+1, rwy.Ident)
		}
		identSeen[rwy.Ident] = true
		if rwy.MagneticHdgDeg < 0 || rwy.MagneticHdgDeg > 360 {
			return fmt.Errorf("runway %s: invalid magnetic heading: %f", rwy.Ident, rwy.MagneticHdgDeg)
		}
	}

	return nil
}

// ValidateWeather validates the weather configuration
func (c *Config) ValidateWeather() error {
	if c.Weather.RefreshIntervalMinutes <= 0 {
		return fmt.Errorf("weather refresh_interval_minutes must be greater than 0: %d", c.Weather.RefreshIntervalMinutes)
	}
	if c.Weather.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("weather request_timeout_seconds must be greater than 0: %d", c.Weather.RequestTimeoutSeconds)
	}
	if c.Weather.MaxRetries < 0 {
		return fmt.Errorf("weather max_retries must be 0 or greater: %d", c.Weather.MaxRetries)
	}
	if c.Weather.CacheExpiryMinutes <= 0 {
		return fmt.Errorf("weather cache_expiry_minutes must be greater than 0: %d", c.Weather.CacheExpiryMinutes)
	}
	if c.Weather.APIBaseURL == "" {
		return fmt.Errorf("weather api_base_url cannot be empty")
	}
	if c.Weather.BreakerMaxFailures <= 0 {
		c.Weather.BreakerMaxFailures = 5
	}
	if c.Weather.BreakerOpenSeconds <= 0 {
		c.Weather.BreakerOpenSeconds = 60
	}
	return nil
}
