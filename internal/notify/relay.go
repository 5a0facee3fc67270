package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// Relay subscribes to the asset channel on the signal bus and converts
// terminal auction transitions into operator alerts. Both writers of the
// open to ended transition (the clock sweep and the lazy expiry on a bid
// attempt) publish on that channel, so the relay covers either path without
// reaching into core logic.
type Relay struct {
	bus    domain.SignalBus
	alerts *Alerts
	logger *slog.Logger
}

// NewRelay creates a relay feeding auction lifecycle events into alerts.
func NewRelay(bus domain.SignalBus, alerts *Alerts, logger *slog.Logger) *Relay {
	return &Relay{
		bus:    bus,
		alerts: alerts,
		logger: logger.With(slog.String("component", "alert_relay")),
	}
}

// Run consumes bus events until the context is cancelled. Alert delivery is
// best-effort; a failed send is logged and the relay keeps consuming.
func (r *Relay) Run(ctx context.Context) error {
	events, err := r.bus.Subscribe(ctx, domain.ChannelAssets)
	if err != nil {
		return fmt.Errorf("notify: subscribe %s: %w", domain.ChannelAssets, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-events:
			if !ok {
				return nil
			}
			r.handle(ctx, payload)
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload []byte) {
	var ev domain.AuctionEndedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		r.logger.WarnContext(ctx, "malformed asset event",
			slog.String("error", err.Error()),
		)
		return
	}
	if ev.Type != "auction_ended" {
		return
	}
	if err := r.alerts.AuctionEnded(ctx, ev.AssetID, ev.Title, ev.HighestBidderID, ev.FinalBid, ev.EndedAt); err != nil {
		r.logger.WarnContext(ctx, "auction ended alert failed",
			slog.String("asset_id", ev.AssetID),
			slog.String("error", err.Error()),
		)
	}
}
