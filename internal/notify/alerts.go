package notify

import (
	"context"
	"fmt"
	"time"
)

// Event types understood by the notifier filter. Operators configure which of
// these reach the alert channels.
const (
	EventBidAccepted  = "bid.accepted"
	EventAuctionEnded = "auction.ended"
	EventError        = "error"
)

// Alerts formats auction lifecycle events into operator alert messages and
// hands them to the Notifier. These go to ops channels (Telegram, Discord);
// they are unrelated to the in-app notifications bidders receive.
type Alerts struct {
	notifier *Notifier

	// minAmount suppresses bid alerts below the threshold; 0 alerts on every
	// accepted bid.
	minAmount int64
}

// NewAlerts creates an Alerts helper. minAmount is the smallest accepted bid
// amount that triggers a bid alert.
func NewAlerts(notifier *Notifier, minAmount int64) *Alerts {
	return &Alerts{notifier: notifier, minAmount: minAmount}
}

// BidAccepted alerts operators that a bid was accepted. Returns without
// sending when the amount is below the configured threshold.
func (a *Alerts) BidAccepted(ctx context.Context, assetID, assetTitle, bidderID string, amount int64) error {
	if amount < a.minAmount {
		return nil
	}
	title := fmt.Sprintf("Bid accepted: %s", assetTitle)
	message := fmt.Sprintf("Asset %s\nBidder %s\nAmount %d", assetID, bidderID, amount)
	return a.notifier.Notify(ctx, EventBidAccepted, title, message)
}

// AuctionEnded alerts operators that an auction closed.
func (a *Alerts) AuctionEnded(ctx context.Context, assetID, assetTitle, winnerID string, finalBid int64, endedAt time.Time) error {
	title := fmt.Sprintf("Auction ended: %s", assetTitle)
	var message string
	if winnerID == "" {
		message = fmt.Sprintf("Asset %s closed at %s with no bids", assetID, endedAt.Format(time.RFC3339))
	} else {
		message = fmt.Sprintf("Asset %s closed at %s\nWinner %s\nFinal bid %d",
			assetID, endedAt.Format(time.RFC3339), winnerID, finalBid)
	}
	return a.notifier.Notify(ctx, EventAuctionEnded, title, message)
}

// Error alerts operators about an infrastructure failure worth waking up for.
func (a *Alerts) Error(ctx context.Context, component string, err error) error {
	title := fmt.Sprintf("Error in %s", component)
	return a.notifier.Notify(ctx, EventError, title, err.Error())
}
