package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// Fanout computes and emits the notification set for an accepted bid: one
// new_bid notification to the asset owner (unless the owner placed the bid)
// and at most one outbid notification per distinct prior accepted bidder.
//
// Delivery is best-effort. A notification write failure is logged and
// skipped; it never blocks or rolls back the bid that triggered it.
type Fanout struct {
	ledger        domain.BidLedger
	notifications domain.NotificationStore
	now           func() time.Time
	logger        *slog.Logger
}

// NewFanout creates a notification fan-out.
func NewFanout(ledger domain.BidLedger, notifications domain.NotificationStore, logger *slog.Logger) *Fanout {
	return &Fanout{
		ledger:        ledger,
		notifications: notifications,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "fanout")),
	}
}

// OnBidAccepted builds the recipient set for the accepted bid and writes one
// notification per recipient. It returns the notifications that were
// successfully stored. The recipient set is deterministic given the ledger
// state at call time; enumeration order carries no meaning.
func (f *Fanout) OnBidAccepted(ctx context.Context, asset domain.Asset, prevHighestBidderID string, bid domain.Bid) []domain.Notification {
	now := f.now().UTC()
	var created []domain.Notification

	if asset.OwnerID != "" && asset.OwnerID != bid.BidderID {
		if n, ok := f.create(ctx, domain.Notification{
			ID:          uuid.New().String(),
			RecipientID: asset.OwnerID,
			Type:        domain.NotificationNewBid,
			AssetID:     bid.AssetID,
			BidID:       bid.ID,
			Amount:      bid.Amount,
			CreatedAt:   now,
		}); ok {
			created = append(created, n)
		}
	}

	for _, bidder := range f.outbidSet(ctx, asset, prevHighestBidderID, bid) {
		if n, ok := f.create(ctx, domain.Notification{
			ID:          uuid.New().String(),
			RecipientID: bidder,
			Type:        domain.NotificationOutbid,
			AssetID:     bid.AssetID,
			BidID:       bid.ID,
			Amount:      bid.Amount,
			CreatedAt:   now,
		}); ok {
			created = append(created, n)
		}
	}

	return created
}

// outbidSet returns the distinct prior accepted bidders to notify, excluding
// the new bidder and the owner (who already received new_bid). If the ledger
// read fails, it degrades to notifying only the displaced highest bidder.
func (f *Fanout) outbidSet(ctx context.Context, asset domain.Asset, prevHighestBidderID string, bid domain.Bid) []string {
	prior, err := f.ledger.PriorBidders(ctx, bid.AssetID)
	if err != nil {
		f.logger.WarnContext(ctx, "prior bidders lookup failed, outbid set degraded",
			slog.String("asset_id", bid.AssetID),
			slog.String("error", err.Error()),
		)
		prior = nil
		if prevHighestBidderID != "" {
			prior = []string{prevHighestBidderID}
		}
	}

	seen := make(map[string]bool, len(prior))
	var out []string
	for _, b := range prior {
		if b == "" || b == bid.BidderID || b == asset.OwnerID || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func (f *Fanout) create(ctx context.Context, n domain.Notification) (domain.Notification, bool) {
	if err := f.notifications.Create(ctx, n); err != nil {
		f.logger.WarnContext(ctx, "notification write failed",
			slog.String("recipient_id", n.RecipientID),
			slog.String("type", string(n.Type)),
			slog.String("bid_id", n.BidID),
			slog.String("error", err.Error()),
		)
		return domain.Notification{}, false
	}
	return n, true
}
