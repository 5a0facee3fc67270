package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// sweepBatchSize bounds how many expired assets one sweep pass transitions.
const sweepBatchSize = 100

// Clock transitions assets from open to ended once their deadline passes.
// It is the only writer of that transition besides the engine's lazy expiry,
// and both go through the same per-asset lock. There is no other transition:
// no re-opening and no deadline extension.
type Clock struct {
	assets domain.AssetStore
	locks  domain.LockManager
	bus    domain.SignalBus
	audit  domain.AuditStore
	now    func() time.Time
	logger *slog.Logger
}

// NewClock creates an auction clock.
func NewClock(assets domain.AssetStore, locks domain.LockManager, bus domain.SignalBus, audit domain.AuditStore, logger *slog.Logger) *Clock {
	return &Clock{
		assets: assets,
		locks:  locks,
		bus:    bus,
		audit:  audit,
		now:    time.Now,
		logger: logger.With(slog.String("component", "auction_clock")),
	}
}

// Sweep performs one pass: it finds open assets whose deadline has passed
// and transitions them to ended. It returns the number of assets this pass
// transitioned. An asset whose lock is currently held by a bid submission is
// skipped; the submission's own lazy expiry or the next sweep handles it.
func (c *Clock) Sweep(ctx context.Context) (int, error) {
	now := c.now().UTC()

	expired, err := c.assets.ListExpired(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("auction: list expired assets: %w", err)
	}

	ended := 0
	for _, asset := range expired {
		ok, err := c.endAsset(ctx, asset.ID, now)
		if err != nil {
			c.logger.WarnContext(ctx, "expiry transition failed",
				slog.String("asset_id", asset.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			ended++
		}
	}
	return ended, nil
}

// endAsset transitions a single asset under its lock. It reports whether
// this call performed the transition.
func (c *Clock) endAsset(ctx context.Context, assetID string, now time.Time) (bool, error) {
	unlock, err := c.locks.Acquire(ctx, "asset:"+assetID, lockTTL)
	if err != nil {
		if err == domain.ErrLockHeld {
			return false, nil
		}
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	defer unlock()

	// Re-read under the lock: a concurrent bid submission may already have
	// performed the lazy expiry.
	asset, err := c.assets.GetByID(ctx, assetID)
	if err != nil {
		return false, fmt.Errorf("load asset: %w", err)
	}
	if asset.Status != domain.AssetStatusOpen || now.Before(asset.EndAt) {
		return false, nil
	}

	transitioned, err := c.assets.MarkEnded(ctx, assetID, now)
	if err != nil {
		return false, fmt.Errorf("mark ended: %w", err)
	}
	if !transitioned {
		return false, nil
	}

	asset.Status = domain.AssetStatusEnded
	publishAuctionEnded(ctx, c.bus, asset, c.logger)

	if c.audit != nil {
		if err := c.audit.Log(ctx, "asset.ended", map[string]any{
			"asset_id":          asset.ID,
			"final_bid":         asset.CurrentBid,
			"highest_bidder_id": asset.HighestBidderID,
		}); err != nil {
			c.logger.WarnContext(ctx, "audit log failed",
				slog.String("asset_id", asset.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.logger.InfoContext(ctx, "auction ended",
		slog.String("asset_id", asset.ID),
		slog.Int64("final_bid", asset.CurrentBid),
		slog.String("highest_bidder_id", asset.HighestBidderID),
	)
	return true, nil
}

// RunLoop runs Sweep on a fixed interval until the context is cancelled.
func (c *Clock) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil {
				c.logger.ErrorContext(ctx, "sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
