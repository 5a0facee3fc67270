// Package auction implements the bid lifecycle core: validation of incoming
// bids against the asset record, the append-only ledger of attempts, the
// notification fan-out for accepted bids, and the clock that transitions
// auctions to their terminal state.
//
// All bid submissions for a given asset are serialized through the lock
// manager; the accept/reject decision and the asset mutation happen under
// that lock with a single consistent time read. Fan-out and event publishing
// run after the lock is released and are best-effort.
package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// DefaultMinIncrement is the minimum amount by which a new bid must exceed
// the current highest bid, in currency units, when no override is configured.
const DefaultMinIncrement int64 = 1000

const (
	// lockTTL bounds how long a crashed submission can hold an asset lock.
	lockTTL = 5 * time.Second

	// lockRetryInterval is the pause between acquisition attempts while
	// another submission holds the asset lock.
	lockRetryInterval = 10 * time.Millisecond
)

// EngineConfig carries the tunable parameters of the bid validator.
type EngineConfig struct {
	// MinIncrement is the minimum bid increment in currency units.
	// Zero or negative falls back to DefaultMinIncrement.
	MinIncrement int64
}

// Engine is the bid validator. It owns the per-asset serialization point:
// every submission acquires the asset's lock, reads the clock once, decides,
// and appends exactly one ledger entry. On accept the append and the asset
// mutation are a single atomic store operation.
type Engine struct {
	assets       domain.AssetStore
	ledger       domain.BidLedger
	locks        domain.LockManager
	fanout       *Fanout
	bus          domain.SignalBus
	audit        domain.AuditStore
	minIncrement int64
	now          func() time.Time
	logger       *slog.Logger
}

// NewEngine creates a bid validation engine.
func NewEngine(
	assets domain.AssetStore,
	ledger domain.BidLedger,
	locks domain.LockManager,
	fanout *Fanout,
	bus domain.SignalBus,
	audit domain.AuditStore,
	cfg EngineConfig,
	logger *slog.Logger,
) *Engine {
	inc := cfg.MinIncrement
	if inc <= 0 {
		inc = DefaultMinIncrement
	}
	return &Engine{
		assets:       assets,
		ledger:       ledger,
		locks:        locks,
		fanout:       fanout,
		bus:          bus,
		audit:        audit,
		minIncrement: inc,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "auction_engine")),
	}
}

// MinIncrement returns the configured minimum bid increment.
func (e *Engine) MinIncrement() int64 {
	return e.minIncrement
}

// SubmitBid validates and records a bid attempt. On acceptance it returns
// the accepted ledger entry and triggers the notification fan-out. On
// rejection it returns a *domain.BidRejectedError (unwrapping to
// domain.ErrBidTooLow or domain.ErrAuctionClosed); the rejected attempt is
// still appended to the ledger. Infrastructure failures propagate as plain
// errors with no ledger or asset mutation.
//
// Retried calls are independent attempts evaluated fresh against current
// state; duplicate suppression is a caller concern.
func (e *Engine) SubmitBid(ctx context.Context, assetID, bidderID string, amount int64) (domain.Bid, error) {
	if assetID == "" || bidderID == "" {
		return domain.Bid{}, fmt.Errorf("auction: missing asset or bidder id: %w", domain.ErrInvalidBid)
	}
	if amount <= 0 {
		return domain.Bid{}, fmt.Errorf("auction: non-positive amount %d: %w", amount, domain.ErrInvalidBid)
	}

	res, err := e.decide(ctx, assetID, bidderID, amount)
	if err != nil {
		return domain.Bid{}, err
	}

	// Post-decision work runs outside the asset lock. None of it can change
	// the bid outcome.
	e.publishBid(ctx, res)
	if res.endedNow {
		e.publishEnded(ctx, res.asset)
	}
	if res.bid.Accepted() {
		e.fanout.OnBidAccepted(ctx, res.asset, res.prevHighestBidderID, res.bid)
	}
	e.auditBid(ctx, res.bid)

	if res.bid.Accepted() {
		return res.bid, nil
	}
	return res.bid, res.rejection
}

// decision carries the outcome of the locked section of SubmitBid.
type decision struct {
	bid                 domain.Bid
	asset               domain.Asset // state after the decision
	prevHighestBidderID string
	rejection           *domain.BidRejectedError
	endedNow            bool // this call performed the open -> ended transition
}

func (e *Engine) decide(ctx context.Context, assetID, bidderID string, amount int64) (decision, error) {
	unlock, err := e.acquireAssetLock(ctx, assetID)
	if err != nil {
		return decision{}, err
	}
	defer unlock()

	// The single time read used for both the expiry check and the ledger
	// timestamp, so a bid can never be accepted at or after the deadline it
	// was judged against.
	now := e.now().UTC()

	asset, err := e.assets.GetByID(ctx, assetID)
	if err != nil {
		return decision{}, fmt.Errorf("auction: load asset %s: %w", assetID, err)
	}

	res := decision{asset: asset, prevHighestBidderID: asset.HighestBidderID}

	// Lazy expiry: transition a past-deadline asset before judging the bid.
	if asset.Status == domain.AssetStatusOpen && !now.Before(asset.EndAt) {
		ended, err := e.assets.MarkEnded(ctx, assetID, now)
		if err != nil {
			return decision{}, fmt.Errorf("auction: mark asset %s ended: %w", assetID, err)
		}
		asset.Status = domain.AssetStatusEnded
		res.asset = asset
		res.endedNow = ended
	}

	if asset.Status == domain.AssetStatusEnded {
		res.rejection = &domain.BidRejectedError{
			Outcome: domain.BidOutcomeRejectedClosed,
			EndAt:   asset.EndAt,
		}
		res.bid, err = e.appendAttempt(ctx, assetID, bidderID, amount, domain.BidOutcomeRejectedClosed, now)
		return res, err
	}

	if minAcceptable := asset.MinAcceptableBid(e.minIncrement); amount < minAcceptable {
		res.rejection = &domain.BidRejectedError{
			Outcome:       domain.BidOutcomeRejectedLow,
			MinAcceptable: minAcceptable,
		}
		res.bid, err = e.appendAttempt(ctx, assetID, bidderID, amount, domain.BidOutcomeRejectedLow, now)
		return res, err
	}

	// Accepted: the ledger append and the asset mutation commit as one
	// store operation, so a persistence failure leaves neither behind.
	bid := newAttempt(assetID, bidderID, amount, domain.BidOutcomeAccepted, now)
	if err := e.ledger.AppendAccepted(ctx, bid); err != nil {
		return decision{}, fmt.Errorf("auction: record accepted bid for asset %s: %w", assetID, err)
	}
	res.bid = bid
	res.asset.CurrentBid = amount
	res.asset.HighestBidderID = bidderID
	res.asset.UpdatedAt = now
	return res, nil
}

func newAttempt(assetID, bidderID string, amount int64, outcome domain.BidOutcome, now time.Time) domain.Bid {
	return domain.Bid{
		ID:       uuid.New().String(),
		AssetID:  assetID,
		BidderID: bidderID,
		Amount:   amount,
		Outcome:  outcome,
		PlacedAt: now,
	}
}

func (e *Engine) appendAttempt(ctx context.Context, assetID, bidderID string, amount int64, outcome domain.BidOutcome, now time.Time) (domain.Bid, error) {
	bid := newAttempt(assetID, bidderID, amount, outcome, now)
	if err := e.ledger.Append(ctx, bid); err != nil {
		return domain.Bid{}, fmt.Errorf("auction: append bid for asset %s: %w", assetID, err)
	}
	return bid, nil
}

// acquireAssetLock obtains the per-asset lock, retrying while another
// submission holds it. It gives up only when the context is done.
func (e *Engine) acquireAssetLock(ctx context.Context, assetID string) (func(), error) {
	key := "asset:" + assetID
	for {
		unlock, err := e.locks.Acquire(ctx, key, lockTTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("auction: acquire lock for asset %s: %w", assetID, err)
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("auction: acquire lock for asset %s: %w", assetID, ctx.Err())
		case <-timer.C:
		}
	}
}

// publishBid emits the bid event on the fan-out channels and the durable
// stream. Publishing is best-effort.
func (e *Engine) publishBid(ctx context.Context, res decision) {
	evType := "bid_rejected"
	if res.bid.Accepted() {
		evType = "bid_accepted"
	}
	ev := domain.BidEvent{
		Type:            evType,
		AssetID:         res.bid.AssetID,
		BidID:           res.bid.ID,
		BidderID:        res.bid.BidderID,
		Amount:          res.bid.Amount,
		Outcome:         res.bid.Outcome,
		CurrentBid:      res.asset.CurrentBid,
		HighestBidderID: res.asset.HighestBidderID,
		PlacedAt:        res.bid.PlacedAt,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		e.logger.WarnContext(ctx, "marshal bid event failed",
			slog.String("bid_id", res.bid.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := e.bus.Publish(ctx, domain.ChannelBids, payload); err != nil {
		e.logger.WarnContext(ctx, "publish bid event failed",
			slog.String("bid_id", res.bid.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := e.bus.Publish(ctx, domain.AssetChannel(res.bid.AssetID), payload); err != nil {
		e.logger.WarnContext(ctx, "publish asset bid event failed",
			slog.String("asset_id", res.bid.AssetID),
			slog.String("error", err.Error()),
		)
	}
	if err := e.bus.StreamAppend(ctx, domain.StreamBidEvents, payload); err != nil {
		e.logger.WarnContext(ctx, "stream append bid event failed",
			slog.String("bid_id", res.bid.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) publishEnded(ctx context.Context, asset domain.Asset) {
	publishAuctionEnded(ctx, e.bus, asset, e.logger)
}

func (e *Engine) auditBid(ctx context.Context, bid domain.Bid) {
	if e.audit == nil {
		return
	}
	err := e.audit.Log(ctx, "bid."+string(bid.Outcome), map[string]any{
		"bid_id":    bid.ID,
		"asset_id":  bid.AssetID,
		"bidder_id": bid.BidderID,
		"amount":    bid.Amount,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "audit log failed",
			slog.String("bid_id", bid.ID),
			slog.String("error", err.Error()),
		)
	}
}

// publishAuctionEnded emits the terminal-state event for an asset. Shared by
// the engine's lazy expiry and the clock sweep.
func publishAuctionEnded(ctx context.Context, bus domain.SignalBus, asset domain.Asset, logger *slog.Logger) {
	ev := domain.AuctionEndedEvent{
		Type:            "auction_ended",
		AssetID:         asset.ID,
		Title:           asset.Title,
		FinalBid:        asset.CurrentBid,
		HighestBidderID: asset.HighestBidderID,
		EndedAt:         asset.EndAt,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.WarnContext(ctx, "marshal auction ended event failed",
			slog.String("asset_id", asset.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, domain.ChannelAssets, payload); err != nil {
		logger.WarnContext(ctx, "publish auction ended event failed",
			slog.String("asset_id", asset.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := bus.Publish(ctx, domain.AssetChannel(asset.ID), payload); err != nil {
		logger.WarnContext(ctx, "publish asset ended event failed",
			slog.String("asset_id", asset.ID),
			slog.String("error", err.Error()),
		)
	}
}
