package domain

import (
	"fmt"
	"time"
)

// BidOutcome records the result of a bid attempt in the ledger. Every
// attempt is appended, including rejections, for audit purposes.
type BidOutcome string

const (
	BidOutcomeAccepted       BidOutcome = "accepted"
	BidOutcomeRejectedLow    BidOutcome = "rejected_low"
	BidOutcomeRejectedClosed BidOutcome = "rejected_closed"
)

// Bid is one append-only ledger entry. Ledger entries are immutable: there
// is no update or delete operation anywhere in the system.
//
// For a given asset, the sequence of accepted bids is strictly increasing in
// Amount and non-decreasing in PlacedAt.
type Bid struct {
	ID       string
	AssetID  string
	BidderID string
	Amount   int64
	Outcome  BidOutcome
	PlacedAt time.Time
}

// Accepted reports whether this ledger entry is an accepted bid.
func (b Bid) Accepted() bool {
	return b.Outcome == BidOutcomeAccepted
}

// BidRejectedError is returned by the bid validator when a bid attempt is
// rejected. Rejections are expected outcomes, not infrastructure failures;
// they unwrap to ErrBidTooLow or ErrAuctionClosed so callers can branch with
// errors.Is, and carry enough detail for a corrected re-submission.
type BidRejectedError struct {
	Outcome       BidOutcome
	MinAcceptable int64     // set for rejected_low
	EndAt         time.Time // set for rejected_closed
}

// Error implements the error interface.
func (e *BidRejectedError) Error() string {
	switch e.Outcome {
	case BidOutcomeRejectedLow:
		return fmt.Sprintf("bid rejected: amount below minimum acceptable %d", e.MinAcceptable)
	case BidOutcomeRejectedClosed:
		return fmt.Sprintf("bid rejected: auction closed at %s", e.EndAt.Format(time.RFC3339))
	default:
		return "bid rejected"
	}
}

// Unwrap maps the rejection to its sentinel error.
func (e *BidRejectedError) Unwrap() error {
	switch e.Outcome {
	case BidOutcomeRejectedLow:
		return ErrBidTooLow
	case BidOutcomeRejectedClosed:
		return ErrAuctionClosed
	default:
		return nil
	}
}
