package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/auprolis-code/auprolis/internal/blob/s3"
	"github.com/auprolis-code/auprolis/internal/cache/redis"
	"github.com/auprolis-code/auprolis/internal/config"
	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/auprolis-code/auprolis/internal/notify"
	"github.com/auprolis-code/auprolis/internal/store/memory"
	"github.com/auprolis-code/auprolis/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application needs
// to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Which concrete implementations land here is decided
// once, by the configured storage driver; nothing downstream inspects the
// backend again.
type Dependencies struct {
	// Stores
	AssetStore        domain.AssetStore
	BidLedger         domain.BidLedger
	NotificationStore domain.NotificationStore
	AuditStore        domain.AuditStore

	// Caches and coordination
	AssetCache  domain.AssetCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage (postgres driver with archiving enabled only)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Operator alerting
	Notifier *notify.Notifier
	Alerts   *notify.Alerts
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		// In-process everything: demo deployments and local development.
		assetStore := memory.NewAssetStore()
		deps.AssetStore = assetStore
		deps.BidLedger = memory.NewBidStore(assetStore)
		deps.NotificationStore = memory.NewNotificationStore()
		deps.AuditStore = memory.NewAuditStore()
		deps.AssetCache = memory.NewAssetCache()
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus()
		// No RateLimiter: the memory driver is single-process and the
		// sliding-window limiter needs Redis. The server skips the
		// middleware when the limiter is nil.

	case config.DriverPostgres:
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		bidStore := postgres.NewBidStore(pool)
		notificationStore := postgres.NewNotificationStore(pool)
		deps.AssetStore = postgres.NewAssetStore(pool)
		deps.BidLedger = bidStore
		deps.NotificationStore = notificationStore
		deps.AuditStore = postgres.NewAuditStore(pool)

		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.AssetCache = redis.NewAssetCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)

		// --- S3 cold storage (only when archiving is enabled) ---
		if cfg.Archive.Enabled {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			closers = append(closers, func() { _ = s3Client.Close() })

			deps.BlobWriter = s3blob.NewWriter(s3Client)
			deps.BlobReader = s3blob.NewReader(s3Client)
			deps.Archiver = s3blob.NewArchiver(
				deps.BlobWriter,
				bidStore,
				notificationStore,
				deps.AuditStore,
			)
		}

	default:
		return nil, nil, fmt.Errorf("wire: unsupported storage driver %q", cfg.Storage.Driver)
	}

	// --- Operator alerting ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	if len(senders) > 0 {
		deps.Alerts = notify.NewAlerts(deps.Notifier, cfg.Auction.AlertMinAmount)
	}

	return deps, cleanup, nil
}
