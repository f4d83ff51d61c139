package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avholt/wxstation/internal/config"
	"github.com/avholt/wxstation/internal/evidence"
	"github.com/avholt/wxstation/internal/observability"
	"github.com/avholt/wxstation/internal/performance"
	"github.com/avholt/wxstation/internal/storage/sqlite"
	"github.com/avholt/wxstation/internal/weather"
	"github.com/avholt/wxstation/internal/websocket"
	"github.com/avholt/wxstation/pkg/logger"
)

// Router wires the API handlers into an HTTP mux
type Router struct {
	handler  *Handler
	wsServer *websocket.Server
	config   *config.Config
	logger   *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(weatherService *weather.Service, calculator *performance.Calculator, signer *evidence.Signer, snapshotStorage *sqlite.SnapshotStorage, calcStorage *sqlite.CalculationStorage, wsServer *websocket.Server, cfg *config.Config, metrics *observability.Metrics, log *logger.Logger) *Router {
	return &Router{
		handler:  NewHandler(weatherService, calculator, signer, snapshotStorage, calcStorage, wsServer, cfg, metrics, log),
		wsServer: wsServer,
		config:   cfg,
		logger:   log.Named("api-router"),
	}
}

// Routes builds the route tree
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(rt.corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/wx", rt.handler.GetWeather)
		r.Get("/wx/history", rt.handler.GetWeatherHistory)
		r.Post("/wx/refresh", rt.handler.RefreshWeather)
		r.Get("/wx/performance", rt.handler.GetPerformance)
		r.Get("/calculations", rt.handler.GetCalculations)
		r.Get("/calculations/{digest}", rt.handler.GetCalculationByDigest)
		r.Get("/status", rt.handler.GetStatus)
		r.Get("/ws", rt.wsServer.HandleConnection)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// corsMiddleware applies the configured CORS policy
func (rt *Router) corsMiddleware(next http.Handler) http.Handler {
	allowed := rt.config.Server.CORSAllowedOrigins

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, a := range allowed {
				if a == "*" || a == origin {
					w.Header().Set("Access-Control-Allow-Origin", a)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					break
				}
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
