package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AssetStore persists asset records. The asset record is the only mutable
// shared resource in the core; it is mutated exclusively by the bid
// validator (on accept) and the auction clock (on expiry), both under the
// same per-asset serialization point.
type AssetStore interface {
	Create(ctx context.Context, asset Asset) error
	GetByID(ctx context.Context, id string) (Asset, error)

	// SetHighestBid records an accepted bid on the asset. The update is
	// guarded: it only applies while the asset is open and the amount
	// strictly exceeds the stored current bid, so a stale writer cannot
	// regress the state even if the per-asset lock is violated. A guard
	// failure on an existing asset returns ErrConflict; a missing asset
	// returns ErrNotFound.
	SetHighestBid(ctx context.Context, id string, amount int64, bidderID string, at time.Time) error

	// MarkEnded transitions an open asset to ended. It reports whether this
	// call performed the transition; false means the asset was already
	// ended (or does not exist), which callers treat as a no-op.
	MarkEnded(ctx context.Context, id string, at time.Time) (bool, error)

	ListOpen(ctx context.Context, opts ListOpts) ([]Asset, error)

	// ListExpired returns open assets whose end time is at or before now,
	// oldest deadline first, for the clock sweep.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Asset, error)

	Count(ctx context.Context) (int64, error)
}

// BidLedger is the append-only record of every bid attempt. No update or
// delete operation is exposed.
type BidLedger interface {
	Append(ctx context.Context, bid Bid) error

	// AppendAccepted records an accepted bid and applies it to the asset
	// record as one atomic operation: either the ledger entry and the
	// asset's current bid both commit, or neither does. The asset update
	// carries the same guards as AssetStore.SetHighestBid.
	AppendAccepted(ctx context.Context, bid Bid) error

	// HighestAccepted returns the accepted bid with the greatest amount for
	// the asset, or ErrNotFound when the asset has no accepted bids.
	HighestAccepted(ctx context.Context, assetID string) (Bid, error)

	// PriorBidders returns every distinct bidder who has ever had an
	// accepted bid on the asset. The fan-out uses this to compute the
	// outbid set.
	PriorBidders(ctx context.Context, assetID string) ([]string, error)

	ListByAsset(ctx context.Context, assetID string, opts ListOpts) ([]Bid, error)
	ListByBidder(ctx context.Context, bidderID string, opts ListOpts) ([]Bid, error)
}

// NotificationStore persists fan-out notifications. Marking a notification
// read is the only mutation; MarkRead is scoped to the recipient so one user
// cannot acknowledge another user's notifications.
type NotificationStore interface {
	Create(ctx context.Context, n Notification) error
	ListByRecipient(ctx context.Context, recipientID string, opts ListOpts) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
