// Package app provides the top-level application lifecycle management for
// the auction service. It wires together all dependencies (stores, caches,
// blob storage, services, background loops, and notifications) and runs the
// HTTP/WebSocket server until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/auprolis-code/auprolis/internal/auction"
	"github.com/auprolis-code/auprolis/internal/config"
	"github.com/auprolis-code/auprolis/internal/notify"
	"github.com/auprolis-code/auprolis/internal/pipeline"
	"github.com/auprolis-code/auprolis/internal/server"
	"github.com/auprolis-code/auprolis/internal/server/handler"
	"github.com/auprolis-code/auprolis/internal/server/middleware"
	"github.com/auprolis-code/auprolis/internal/server/ws"
	"github.com/auprolis-code/auprolis/internal/service"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// auction engine, background loops, and the API server, and blocks until
// the context is cancelled. On return it runs all registered cleanup
// functions via Close.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("storage_driver", a.cfg.Storage.Driver),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	// --- Auction core ---
	fanout := auction.NewFanout(deps.BidLedger, deps.NotificationStore, a.logger)
	engine := auction.NewEngine(
		deps.AssetStore,
		deps.BidLedger,
		deps.LockManager,
		fanout,
		deps.SignalBus,
		deps.AuditStore,
		auction.EngineConfig{MinIncrement: a.cfg.Auction.MinIncrement},
		a.logger,
	)
	clock := auction.NewClock(deps.AssetStore, deps.LockManager, deps.SignalBus, deps.AuditStore, a.logger)

	// --- Background loops ---
	var archiver *pipeline.Archiver
	if deps.Archiver != nil {
		archiver = pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
	}
	orchestrator := pipeline.NewOrchestrator(
		clock,
		archiver,
		deps.Alerts,
		a.cfg.Auction.SweepInterval.Duration,
		a.cfg.Archive.Cron,
		a.logger,
	)
	g.Go(func() error {
		return orchestrator.Run(ctx)
	})

	// Operator alerting for terminal transitions rides the signal bus, so
	// clock sweeps and lazy expiries alert alike.
	if deps.Alerts != nil {
		relay := notify.NewRelay(deps.SignalBus, deps.Alerts, a.logger)
		g.Go(func() error {
			return relay.Run(ctx)
		})
	}

	// --- Services ---
	assetSvc := service.NewAssetService(deps.AssetStore, deps.AssetCache, a.logger)
	bidSvc := service.NewBidService(engine, deps.BidLedger, deps.AssetStore, deps.AssetCache, deps.Alerts, a.logger)
	notificationSvc := service.NewNotificationService(deps.NotificationStore)

	// --- WebSocket hub ---
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Storage.Driver,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// --- HTTP server ---
	var rateLimit func(http.Handler) http.Handler
	if deps.RateLimiter != nil && a.cfg.Server.RateLimitPerMin > 0 {
		rateLimit = middleware.RateLimit(deps.RateLimiter, a.cfg.Server.RateLimitPerMin, time.Minute)
	}
	var archivesHandler *handler.ArchiveHandler
	if deps.BlobReader != nil {
		archivesHandler = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}
	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health:        handler.NewHealthHandler(a.logger),
			Status:        handler.NewStatusHandler(a.cfg.Storage.Driver, engine.MinIncrement()),
			Assets:        handler.NewAssetHandler(assetSvc, engine.MinIncrement(), a.logger),
			Bids:          handler.NewBidHandler(bidSvc, a.logger),
			Notifications: handler.NewNotificationHandler(notificationSvc, a.logger),
			Archives:      archivesHandler,
		},
		hub,
		rateLimit,
		a.logger,
	)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
