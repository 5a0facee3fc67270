package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, DriverPostgres, cfg.Storage.Driver)
	require.Equal(t, int64(1000), cfg.Auction.MinIncrement)
	require.Equal(t, 30*time.Second, cfg.Auction.SweepInterval.Duration)
	require.False(t, cfg.Archive.Enabled)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[storage]
driver = "memory"

[auction]
min_increment = 500
sweep_interval = "10s"

[server]
port = 9090
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, DriverMemory, cfg.Storage.Driver)
	require.Equal(t, int64(500), cfg.Auction.MinIncrement)
	require.Equal(t, 10*time.Second, cfg.Auction.SweepInterval.Duration)
	require.Equal(t, 9090, cfg.Server.Port)

	// Untouched fields keep their defaults.
	require.Equal(t, "auprolis", cfg.Postgres.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUPROLIS_STORAGE_DRIVER", "memory")
	t.Setenv("AUPROLIS_AUCTION_MIN_INCREMENT", "2500")
	t.Setenv("AUPROLIS_AUCTION_SWEEP_INTERVAL", "1m")
	t.Setenv("AUPROLIS_SERVER_PORT", "8081")
	t.Setenv("AUPROLIS_SERVER_API_KEY", "secret-key")
	t.Setenv("AUPROLIS_POSTGRES_RUN_MIGRATIONS", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	require.Equal(t, DriverMemory, cfg.Storage.Driver)
	require.Equal(t, int64(2500), cfg.Auction.MinIncrement)
	require.Equal(t, time.Minute, cfg.Auction.SweepInterval.Duration)
	require.Equal(t, 8081, cfg.Server.Port)
	require.Equal(t, "secret-key", cfg.Server.APIKey)
	require.False(t, cfg.Postgres.RunMigrations)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Driver = "sqlite"
	cfg.LogLevel = "verbose"
	cfg.Auction.MinIncrement = 0
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown driver")
	require.Contains(t, err.Error(), "log_level")
	require.Contains(t, err.Error(), "min_increment")
	require.Contains(t, err.Error(), "port")
}

func TestValidateDriverSpecificRequirements(t *testing.T) {
	// The memory driver needs no postgres or redis settings.
	cfg := Defaults()
	cfg.Storage.Driver = DriverMemory
	cfg.Postgres = PostgresConfig{}
	cfg.Redis = RedisConfig{}
	require.NoError(t, cfg.Validate())

	// The postgres driver does.
	cfg.Storage.Driver = DriverPostgres
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "postgres: host")
	require.Contains(t, err.Error(), "redis: addr")

	// A DSN stands in for the individual connection fields.
	cfg = Defaults()
	cfg.Postgres.Host = ""
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/auprolis"
	require.NoError(t, cfg.Validate())
}

func TestValidateArchiveRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.Archive.RetentionDays = 0
	cfg.S3.Endpoint = ""
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "retention_days")
	require.Contains(t, err.Error(), "s3: endpoint")
	require.Contains(t, err.Error(), "s3: bucket")

	// Archiving is tied to durable storage.
	cfg = Defaults()
	cfg.Storage.Driver = DriverMemory
	cfg.Archive.Enabled = true
	cfg.S3.Endpoint = "http://localhost:9000"
	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `storage.driver = "postgres"`)
}

func TestValidateTelegramPairing(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "token"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "telegram")

	cfg.Notify.TelegramChatID = "12345"
	require.NoError(t, cfg.Validate())
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://user:hunter2@db/auprolis"
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.S3.AccessKey = "AKIA123"
	cfg.S3.SecretKey = "shhh"
	cfg.Server.APIKey = "api-key"
	cfg.Notify.TelegramToken = "tg-token"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/webhook"

	red := RedactedConfig(&cfg)

	require.Equal(t, redacted, red.Postgres.DSN)
	require.Equal(t, redacted, red.Postgres.Password)
	require.Equal(t, redacted, red.Redis.Password)
	require.Equal(t, redacted, red.S3.AccessKey)
	require.Equal(t, redacted, red.S3.SecretKey)
	require.Equal(t, redacted, red.Server.APIKey)
	require.Equal(t, redacted, red.Notify.TelegramToken)
	require.Equal(t, redacted, red.Notify.DiscordWebhookURL)

	// Non-secret fields pass through, and the original is untouched.
	require.Equal(t, cfg.Server.Port, red.Server.Port)
	require.Equal(t, "hunter2", cfg.Postgres.Password)
}
