package domain

import "time"

// NotificationType distinguishes the two in-app notification kinds produced
// by the fan-out. Operator alert channels (Telegram, Discord) are a separate
// concern and do not create Notification records.
type NotificationType string

const (
	// NotificationNewBid goes to the asset owner when someone else's bid is
	// accepted on their asset.
	NotificationNewBid NotificationType = "new_bid"

	// NotificationOutbid goes to every distinct prior accepted bidder when a
	// new bid is accepted, at most once per bidder per accepted bid.
	NotificationOutbid NotificationType = "outbid"
)

// Notification is one message to one recipient, derived from an accepted
// bid. Notifications are one-way outputs: the only mutation is the recipient
// marking it read; they are never deleted (retention is handled by the
// archiver, which copies them to cold storage).
type Notification struct {
	ID          string
	RecipientID string
	Type        NotificationType
	AssetID     string
	BidID       string
	Amount      int64
	Read        bool
	CreatedAt   time.Time
}
