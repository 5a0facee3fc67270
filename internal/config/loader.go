package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies AUPROLIS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known AUPROLIS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Storage ──
	setStr(&cfg.Storage.Driver, "AUPROLIS_STORAGE_DRIVER")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "AUPROLIS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "AUPROLIS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "AUPROLIS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "AUPROLIS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "AUPROLIS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "AUPROLIS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "AUPROLIS_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "AUPROLIS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "AUPROLIS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "AUPROLIS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "AUPROLIS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AUPROLIS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AUPROLIS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "AUPROLIS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "AUPROLIS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "AUPROLIS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "AUPROLIS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "AUPROLIS_S3_REGION")
	setStr(&cfg.S3.Bucket, "AUPROLIS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "AUPROLIS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "AUPROLIS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "AUPROLIS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "AUPROLIS_S3_FORCE_PATH_STYLE")

	// ── Auction ──
	setInt64(&cfg.Auction.MinIncrement, "AUPROLIS_AUCTION_MIN_INCREMENT")
	setDuration(&cfg.Auction.SweepInterval, "AUPROLIS_AUCTION_SWEEP_INTERVAL")
	setInt64(&cfg.Auction.AlertMinAmount, "AUPROLIS_AUCTION_ALERT_MIN_AMOUNT")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "AUPROLIS_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "AUPROLIS_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "AUPROLIS_ARCHIVE_CRON")

	// ── Server ──
	setInt(&cfg.Server.Port, "AUPROLIS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "AUPROLIS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "AUPROLIS_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "AUPROLIS_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "AUPROLIS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "AUPROLIS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "AUPROLIS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "AUPROLIS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "AUPROLIS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
