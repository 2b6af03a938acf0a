package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/handlers"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/middleware"

	"github.com/ternarybob/arbor"
)

// webServer provides HTTP endpoints for monitoring and manual control
type webServer struct {
	config      *common.Config
	server      *http.Server
	logger      arbor.ILogger
	apiHandlers *handlers.APIHandlers
	wsHub       *handlers.WebSocketHub
	running     bool
	startTime   time.Time
}

// NewWebServer wires the admin surface. The hub is created by the caller
// so the syncer can broadcast into it as its event sink.
func NewWebServer(cfg *common.Config, storage interfaces.Storage, syncer interfaces.SyncRunner, wsHub *handlers.WebSocketHub, logger arbor.ILogger) (interfaces.WebService, error) {
	mux := http.NewServeMux()

	apiHandlers := handlers.NewAPIHandlers(cfg, storage, syncer, logger)

	ws := &webServer{
		config:      cfg,
		logger:      logger,
		apiHandlers: apiHandlers,
		wsHub:       wsHub,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Service.Port),
			Handler: mux,
		},
	}

	logMiddleware := middleware.Logging(logger)
	corsMiddleware := middleware.CORS

	mux.HandleFunc("/health", logMiddleware(corsMiddleware(apiHandlers.HealthHandler)))
	mux.HandleFunc("/version", logMiddleware(corsMiddleware(apiHandlers.VersionHandler)))
	mux.HandleFunc("/status", logMiddleware(corsMiddleware(apiHandlers.StatusHandler)))
	mux.HandleFunc("/synclogs", logMiddleware(corsMiddleware(apiHandlers.SyncLogsHandler)))
	mux.HandleFunc("/sync", logMiddleware(corsMiddleware(apiHandlers.TriggerSyncHandler)))

	mux.HandleFunc("/ws", corsMiddleware(wsHub.WebSocketHandler))

	return ws, nil
}

// Start starts the web server
func (ws *webServer) Start(ctx context.Context) error {
	ws.running = true
	ws.startTime = time.Now()

	go func() {
		ws.logger.Info().Int("port", ws.config.Service.Port).Msg("Starting web server")
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error().Err(err).Msg("Web server error")
		}
	}()
	return nil
}

// Stop stops the web server
func (ws *webServer) Stop() error {
	ws.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return ws.server.Shutdown(ctx)
}

// IsRunning returns whether the server is active
func (ws *webServer) IsRunning() bool {
	return ws.running
}
