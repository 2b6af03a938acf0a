package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/interfaces"

	"github.com/ternarybob/arbor"
)

// APIHandlers contains all API endpoint handlers
type APIHandlers struct {
	config    *common.Config
	storage   interfaces.Storage
	syncer    interfaces.SyncRunner
	logger    arbor.ILogger
	startTime time.Time
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Build     string    `json:"build"`
	Uptime    float64   `json:"uptime_seconds"`
	Services  struct {
		Database bool `json:"database"`
	} `json:"services"`
}

// VersionResponse represents build version information
type VersionResponse struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// StatusResponse represents the sync service status
type StatusResponse struct {
	Sync struct {
		Running  bool    `json:"running"`
		Uptime   float64 `json:"uptime_seconds"`
		Interval string  `json:"interval"`
	} `json:"sync"`
	Catalog struct {
		Components int `json:"components"`
		Fragments  int `json:"fragments"`
		Patterns   int `json:"patterns"`
	} `json:"catalog"`
	LastRun *LastRunSummary `json:"last_run,omitempty"`
}

// LastRunSummary is the condensed view of the most recent SyncLog row.
type LastRunSummary struct {
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	Status         string    `json:"status"`
	PagesProcessed int       `json:"pages_processed"`
	PagesFailed    int       `json:"pages_failed"`
}

// TriggerResponse represents the manual sync trigger result
type TriggerResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Run     *LastRunSummary `json:"run,omitempty"`
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(config *common.Config, storage interfaces.Storage, syncer interfaces.SyncRunner, logger arbor.ILogger) *APIHandlers {
	return &APIHandlers{
		config:    config,
		storage:   storage,
		syncer:    syncer,
		logger:    logger,
		startTime: time.Now(),
	}
}

// HealthHandler returns system health status
func (h *APIHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   common.GetVersion(),
		Build:     common.GetBuild(),
		Uptime:    time.Since(h.startTime).Seconds(),
	}

	_, _, _, err := h.storage.Counts()
	health.Services.Database = err == nil
	if !health.Services.Database {
		health.Status = "degraded"
	}

	if err := json.NewEncoder(w).Encode(health); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode health response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// VersionHandler returns version information
func (h *APIHandlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	versionResp := VersionResponse{
		Version: common.GetVersion(),
		Build:   common.GetBuild(),
		Commit:  common.GetGitCommit(),
	}

	if err := json.NewEncoder(w).Encode(versionResp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode version response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// StatusHandler returns catalog counts and the last run summary
func (h *APIHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := StatusResponse{}
	status.Sync.Running = h.syncer.IsRunning()
	status.Sync.Uptime = time.Since(h.startTime).Seconds()
	status.Sync.Interval = h.config.Service.SyncInterval

	components, fragments, patterns, err := h.storage.Counts()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to load catalog counts for status")
	}
	status.Catalog.Components = components
	status.Catalog.Fragments = fragments
	status.Catalog.Patterns = patterns

	if last, err := h.storage.LatestSyncLog(); err == nil && last != nil {
		status.LastRun = &LastRunSummary{
			StartedAt:      last.SyncStartedAt,
			CompletedAt:    last.SyncCompletedAt,
			Status:         string(last.Status),
			PagesProcessed: last.PagesProcessed,
			PagesFailed:    last.PagesFailed,
		}
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode status response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// SyncLogsHandler returns recent sync runs, newest first
func (h *APIHandlers) SyncLogsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := h.storage.ListSyncLogs(limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list sync logs")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"success": true,
		"logs":    logs,
		"count":   len(logs),
	}

	json.NewEncoder(w).Encode(response)
}

// TriggerSyncHandler starts a run outside the schedule. The run executes
// in the background; progress is observable on the WebSocket feed and in
// the sync log. Returns 409 while a run is active.
func (h *APIHandlers) TriggerSyncHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.syncer.IsRunning() {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(TriggerResponse{
			Success: false,
			Message: "sync run already in progress",
		})
		return
	}

	// The run outlives this request, so it gets its own context.
	go func() {
		if _, err := h.syncer.Run(context.Background()); err != nil {
			h.logger.Error().Err(err).Msg("Manually triggered sync failed")
		}
	}()

	h.logger.Info().Msg("Sync run triggered manually")

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(TriggerResponse{
		Success: true,
		Message: "sync run started",
	})
}
