// Package server assembles the HTTP and WebSocket API surface on top of the
// service layer.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/auprolis-code/auprolis/internal/server/handler"
	"github.com/auprolis-code/auprolis/internal/server/middleware"
	"github.com/auprolis-code/auprolis/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Status        *handler.StatusHandler
	Assets        *handler.AssetHandler
	Bids          *handler.BidHandler
	Notifications *handler.NotificationHandler
	Archives      *handler.ArchiveHandler // nil when blob storage is not configured
}

// Server is the HTTP + WebSocket API server for the auction service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, optional rate limiting) and
// attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, rateLimit func(http.Handler) http.Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Backend status.
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Asset endpoints.
	mux.HandleFunc("GET /api/assets", handlers.Assets.ListAssets)
	mux.HandleFunc("POST /api/assets", handlers.Assets.CreateListing)
	mux.HandleFunc("GET /api/assets/{id}", handlers.Assets.GetAsset)

	// Bid endpoints.
	mux.HandleFunc("POST /api/assets/{id}/bids", handlers.Bids.PlaceBid)
	mux.HandleFunc("GET /api/assets/{id}/bids", handlers.Bids.ListAssetBids)
	mux.HandleFunc("GET /api/bidders/{id}/bids", handlers.Bids.ListBidderBids)

	// Notification endpoints.
	mux.HandleFunc("GET /api/users/{id}/notifications", handlers.Notifications.ListNotifications)
	mux.HandleFunc("POST /api/users/{id}/notifications/{notification_id}/read", handlers.Notifications.MarkRead)

	// Archive endpoints, only when blob storage is configured.
	if handlers.Archives != nil {
		mux.HandleFunc("GET /api/archives", handlers.Archives.ListArchives)
		mux.HandleFunc("GET /api/archives/{kind}/{file}", handlers.Archives.GetArchive)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply rate limiting when a limiter is configured.
	if rateLimit != nil {
		h = rateLimit(h)
	}

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
