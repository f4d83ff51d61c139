package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/avholt/wxstation/internal/api"
	"github.com/avholt/wxstation/internal/config"
	"github.com/avholt/wxstation/internal/evidence"
	"github.com/avholt/wxstation/internal/observability"
	"github.com/avholt/wxstation/internal/performance"
	"github.com/avholt/wxstation/internal/storage/sqlite"
	"github.com/avholt/wxstation/internal/weather"
	"github.com/avholt/wxstation/internal/websocket"
	"github.com/avholt/wxstation/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting wxstation server",
		logger.String("version", Version),
		logger.String("station", cfg.Station.AirportCode),
		logger.String("config_path", *configPath),
	)

	// Register Prometheus metrics
	metrics := observability.NewMetrics()

	// Generate today's database filename
	today := time.Now().Format("2006-01-02")
	dbFilename := fmt.Sprintf("wxstation-%s.db", today)
	dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, dbFilename)

	// Ensure the directory exists
	if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
		os.Exit(1)
	}

	log.Info("Using daily database", logger.String("path", dbPath))

	// Create SQLite storage
	snapshotStorage, err := sqlite.NewSnapshotStorage(dbPath, cfg.Storage.MaxHistoryRows, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer snapshotStorage.Close()

	// Create calculation storage on the shared connection
	calcStorage := sqlite.NewCalculationStorage(snapshotStorage.GetDB(), log)

	// Create evidence signer
	signer, err := evidence.NewSigner(cfg.Evidence.KeyPath, log)
	if err != nil {
		log.Error("Failed to create evidence signer", logger.Error(err))
		os.Exit(1)
	}

	// Create WebSocket server
	wsServer := websocket.NewServer(log, metrics)
	go wsServer.Run()

	// Create performance calculator
	runways := make([]performance.Runway, 0, len(cfg.Station.Runways))
	for _, rwy := range cfg.Station.Runways {
		runways = append(runways, performance.Runway{
			Ident:          rwy.Ident,
			MagneticHdgDeg: rwy.MagneticHdgDeg,
		})
	}
	calculator := performance.NewCalculator(performance.Station{
		Latitude:    cfg.Station.Latitude,
		Longitude:   cfg.Station.Longitude,
		ElevationFt: float64(cfg.Station.ElevationFeet),
		Runways:     runways,
	}, log)

	// Create weather service
	weatherConfigConverted := weather.ConfigWeatherConfig{
		RefreshIntervalMinutes: cfg.Weather.RefreshIntervalMinutes,
		APIBaseURL:             cfg.Weather.APIBaseURL,
		RequestTimeoutSeconds:  cfg.Weather.RequestTimeoutSeconds,
		MaxRetries:             cfg.Weather.MaxRetries,
		CacheExpiryMinutes:     cfg.Weather.CacheExpiryMinutes,
		BreakerMaxFailures:     cfg.Weather.BreakerMaxFailures,
		BreakerOpenSeconds:     cfg.Weather.BreakerOpenSeconds,
	}
	weatherService := weather.NewService(weatherConfigConverted, cfg.Station.AirportCode, snapshotStorage, wsServer, metrics, log)

	// Start weather service
	if err := weatherService.Start(); err != nil {
		log.Error("Failed to start weather service", logger.Error(err))
		os.Exit(1)
	}

	// Create API router
	router := api.NewRouter(weatherService, calculator, signer, snapshotStorage, calcStorage, wsServer, cfg, metrics, log)

	// --- Setup for multiple HTTP servers ---
	var servers []*http.Server
	allPorts := []int{cfg.Server.Port}
	if len(cfg.Server.AdditionalPorts) > 0 {
		allPorts = append(allPorts, cfg.Server.AdditionalPorts...)
	}

	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	// Start a server for each configured port
	for _, port := range allPorts {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		server := &http.Server{
			Addr:         addr,
			Handler:      router.Routes(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Stop background services first
	log.Info("Stopping weather service...")
	if err := weatherService.Stop(); err != nil {
		log.Error("Error stopping weather service", logger.Error(err))
	}
	log.Info("Weather service stopped.")

	// Shutdown all HTTP servers
	log.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait()

	log.Info("Server fully stopped")
}
