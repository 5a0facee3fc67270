package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/auprolis-code/auprolis/internal/auction"
	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/auprolis-code/auprolis/internal/notify"
)

// BidService wraps the auction engine with the surrounding concerns the API
// needs: cache invalidation after accepted bids, bid history reads, and
// operator alerting on high-value activity.
type BidService struct {
	engine *auction.Engine
	ledger domain.BidLedger
	assets domain.AssetStore
	cache  domain.AssetCache
	alerts *notify.Alerts
	logger *slog.Logger
}

// NewBidService creates a BidService. alerts may be nil when no operator
// channels are configured.
func NewBidService(
	engine *auction.Engine,
	ledger domain.BidLedger,
	assets domain.AssetStore,
	cache domain.AssetCache,
	alerts *notify.Alerts,
	logger *slog.Logger,
) *BidService {
	return &BidService{
		engine: engine,
		ledger: ledger,
		assets: assets,
		cache:  cache,
		alerts: alerts,
		logger: logger,
	}
}

// PlaceBid submits a bid through the engine. Accepted bids invalidate the
// asset cache entry so the next read sees the new current bid. Rejections
// come back as *domain.BidRejectedError; the caller maps them to API
// responses.
func (s *BidService) PlaceBid(ctx context.Context, assetID, bidderID string, amount int64) (domain.Bid, error) {
	bid, err := s.engine.SubmitBid(ctx, assetID, bidderID, amount)
	if err != nil {
		var rejected *domain.BidRejectedError
		if errors.As(err, &rejected) {
			// The rejection is an outcome, not an infrastructure failure.
			// Pass it through unchanged so handlers can branch on it.
			return bid, err
		}
		return domain.Bid{}, fmt.Errorf("bid_service: place bid: %w", err)
	}

	if cacheErr := s.cache.Invalidate(ctx, assetID); cacheErr != nil {
		s.logger.WarnContext(ctx, "bid_service: cache invalidate failed",
			slog.String("asset_id", assetID),
			slog.String("error", cacheErr.Error()),
		)
		// Non-fatal: the cache entry expires on its own.
	}

	s.alertAccepted(ctx, assetID, bid)

	return bid, nil
}

// alertAccepted notifies operator channels about the accepted bid. Alert
// failures never affect the bid outcome.
func (s *BidService) alertAccepted(ctx context.Context, assetID string, bid domain.Bid) {
	if s.alerts == nil {
		return
	}

	title := assetID
	if a, err := s.assets.GetByID(ctx, assetID); err == nil {
		title = a.Title
	}

	if err := s.alerts.BidAccepted(ctx, assetID, title, bid.BidderID, bid.Amount); err != nil {
		s.logger.WarnContext(ctx, "bid_service: operator alert failed",
			slog.String("asset_id", assetID),
			slog.String("error", err.Error()),
		)
	}
}

// ListByAsset returns the bid history of an asset, newest first. It includes
// rejected attempts; the ledger records every attempt.
func (s *BidService) ListByAsset(ctx context.Context, assetID string, opts domain.ListOpts) ([]domain.Bid, error) {
	bids, err := s.ledger.ListByAsset(ctx, assetID, opts)
	if err != nil {
		return nil, fmt.Errorf("bid_service: list by asset %q: %w", assetID, err)
	}
	return bids, nil
}

// ListByBidder returns the bids a user has placed, newest first.
func (s *BidService) ListByBidder(ctx context.Context, bidderID string, opts domain.ListOpts) ([]domain.Bid, error) {
	bids, err := s.ledger.ListByBidder(ctx, bidderID, opts)
	if err != nil {
		return nil, fmt.Errorf("bid_service: list by bidder %q: %w", bidderID, err)
	}
	return bids, nil
}

// MinIncrement returns the engine's configured minimum bid increment, for
// display alongside asset detail responses.
func (s *BidService) MinIncrement() int64 {
	return s.engine.MinIncrement()
}
