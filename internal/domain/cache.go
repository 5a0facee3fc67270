package domain

import (
	"context"
	"time"
)

// AssetCache provides fast reads of asset snapshots for the browse API. The
// store remains the source of truth; cached entries expire or are
// invalidated on every mutation.
type AssetCache interface {
	Set(ctx context.Context, asset Asset) error
	Get(ctx context.Context, id string) (Asset, error)
	Invalidate(ctx context.Context, id string) error
}

// LockManager provides the per-asset mutual exclusion required around the
// bid accept/reject decision and the clock's expiry transition. Acquire
// returns ErrLockHeld without blocking when another holder owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter provides distributed rate limiting for the API surface.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage represents a single entry read from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus is the subscription abstraction at the integration boundary:
// the core publishes bid and auction events here, and consumers (the
// WebSocket hub, dashboards) subscribe without the core knowing about them.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
