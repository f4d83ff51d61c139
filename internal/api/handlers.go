package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avholt/wxstation/internal/config"
	"github.com/avholt/wxstation/internal/evidence"
	"github.com/avholt/wxstation/internal/observability"
	"github.com/avholt/wxstation/internal/performance"
	"github.com/avholt/wxstation/internal/storage/sqlite"
	"github.com/avholt/wxstation/internal/weather"
	"github.com/avholt/wxstation/internal/websocket"
	"github.com/avholt/wxstation/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	weatherService  *weather.Service
	calculator      *performance.Calculator
	signer          *evidence.Signer
	snapshotStorage *sqlite.SnapshotStorage
	calcStorage     *sqlite.CalculationStorage
	wsServer        *websocket.Server
	config          *config.Config
	metrics         *observability.Metrics
	logger          *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(weatherService *weather.Service, calculator *performance.Calculator, signer *evidence.Signer, snapshotStorage *sqlite.SnapshotStorage, calcStorage *sqlite.CalculationStorage, wsServer *websocket.Server, cfg *config.Config, metrics *observability.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		weatherService:  weatherService,
		calculator:      calculator,
		signer:          signer,
		snapshotStorage: snapshotStorage,
		calcStorage:     calcStorage,
		wsServer:        wsServer,
		config:          cfg,
		metrics:         metrics,
		logger:          log.Named("api-handler"),
	}
}

// GetWeather returns the current decoded snapshot
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	state := h.weatherService.GetState()
	if state == nil || state.Snapshot == nil {
		http.Error(w, "No weather data available yet", http.StatusServiceUnavailable)
		return
	}

	now := time.Now().UTC()
	response := map[string]any{
		"snapshot":     state.Snapshot,
		"age_seconds":  int(state.Snapshot.Age(now).Seconds()),
		"fresh":        state.Snapshot.IsFresh(now),
		"last_updated": state.LastUpdated,
	}
	if len(state.FetchErrors) > 0 {
		response["fetch_errors"] = state.FetchErrors
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetWeatherHistory returns recent stored snapshots, newest first
func (h *Handler) GetWeatherHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.config.Storage.MaxHistoryRows
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	records, err := h.snapshotStorage.GetHistory(h.config.Station.AirportCode, limit)
	if err != nil {
		h.logger.Error("Failed to query snapshot history", logger.Error(err))
		http.Error(w, "Failed to query history", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"station":   h.config.Station.AirportCode,
		"count":     len(records),
		"snapshots": records,
	})
}

// RefreshWeather triggers an immediate out-of-cycle fetch
func (h *Handler) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	if !h.weatherService.IsStarted() {
		http.Error(w, "Weather service not running", http.StatusServiceUnavailable)
		return
	}

	h.weatherService.RefreshNow()
	h.logger.Info("Manual weather refresh requested", logger.String("remote_addr", r.RemoteAddr))

	WriteJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"message": "Refresh scheduled",
	})
}

// GetPerformance computes runway wind components and altitude figures for
// the current snapshot, signs the result and stores the signed record.
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	snapshot := h.weatherService.GetSnapshot()
	if snapshot == nil {
		http.Error(w, "No weather data available yet", http.StatusServiceUnavailable)
		return
	}

	assessment := h.calculator.Assess(*snapshot)

	// Optionally narrow to one runway
	if runway := r.URL.Query().Get("runway"); runway != "" {
		var matched []performance.RunwayWind
		for _, rw := range assessment.RunwayWinds {
			if rw.Runway == runway {
				matched = append(matched, rw)
			}
		}
		if matched == nil && len(assessment.RunwayWinds) > 0 {
			http.Error(w, "Unknown runway: "+runway, http.StatusNotFound)
			return
		}
		assessment.RunwayWinds = matched
	}

	record, err := h.signer.Sign(
		assessment.Station,
		snapshot.Report.Raw,
		snapshot.IssuedAt,
		time.Now().UTC(),
		assessment,
	)
	if err != nil {
		h.logger.Error("Failed to sign calculation", logger.Error(err))
		http.Error(w, "Failed to sign calculation", http.StatusInternalServerError)
		return
	}

	if _, err := h.calcStorage.StoreRecord(record); err != nil {
		h.logger.Error("Failed to store signed calculation", logger.Error(err))
	}
	h.metrics.EvidenceSigned.Inc()

	WriteJSON(w, http.StatusOK, map[string]any{
		"assessment": assessment,
		"evidence": map[string]any{
			"digest":     record.Digest,
			"signature":  record.Signature,
			"public_key": record.PublicKeyHex,
		},
	})
}

// GetCalculations returns stored signed calculation records
func (h *Handler) GetCalculations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	records, err := h.calcStorage.GetRecords(h.config.Station.AirportCode, limit, offset)
	if err != nil {
		h.logger.Error("Failed to query signed calculations", logger.Error(err))
		http.Error(w, "Failed to query calculations", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// GetCalculationByDigest returns one signed record and its verification status
func (h *Handler) GetCalculationByDigest(w http.ResponseWriter, r *http.Request) {
	digest := chi.URLParam(r, "digest")
	if digest == "" {
		http.Error(w, "Missing digest", http.StatusBadRequest)
		return
	}

	record, err := h.calcStorage.GetRecordByDigest(digest)
	if err != nil {
		h.logger.Error("Failed to query signed calculation", logger.Error(err))
		http.Error(w, "Failed to query calculation", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Calculation not found", http.StatusNotFound)
		return
	}

	verifyErr := evidence.Verify(record)
	response := map[string]any{
		"record":   record,
		"verified": verifyErr == nil,
	}
	if verifyErr != nil {
		response["verify_error"] = verifyErr.Error()
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetStatus returns the service status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"station":         h.config.Station.AirportCode,
		"weather_running": h.weatherService.IsStarted(),
		"ws_clients":      h.wsServer.ClientCount(),
		"cache":           h.weatherService.GetCacheStats(),
		"signing_key":     h.signer.PublicKeyHex(),
	}

	if snapshot := h.weatherService.GetSnapshot(); snapshot != nil {
		response["last_report"] = snapshot.Report.Raw
		response["issued_at"] = snapshot.IssuedAt
		response["fresh"] = snapshot.IsFresh(time.Now().UTC())
	}

	WriteJSON(w, http.StatusOK, response)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
