package memory

import (
	"context"
	"sync"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// BidStore is a concurrency-safe in-memory implementation of
// domain.BidLedger. Entries are held in append order per asset and are never
// modified after insertion. It holds a reference to the asset store so an
// accepted bid and its asset update commit together.
type BidStore struct {
	mu       sync.RWMutex
	assets   *AssetStore
	byAsset  map[string][]domain.Bid
	byBidder map[string][]domain.Bid
}

// NewBidStore creates an empty in-memory bid ledger writing accepted bids
// through to the given asset store.
func NewBidStore(assets *AssetStore) *BidStore {
	return &BidStore{
		assets:   assets,
		byAsset:  make(map[string][]domain.Bid),
		byBidder: make(map[string][]domain.Bid),
	}
}

// Append records a bid attempt.
func (s *BidStore) Append(_ context.Context, bid domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLocked(bid)
	return nil
}

// AppendAccepted records an accepted bid and applies it to the asset record.
// The guarded asset update runs first; the ledger entry is only appended once
// it succeeds, so a rejected or failed update leaves the ledger untouched.
func (s *BidStore) AppendAccepted(_ context.Context, bid domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets.mu.Lock()
	err := s.assets.setHighestBidLocked(bid.AssetID, bid.Amount, bid.BidderID, bid.PlacedAt)
	s.assets.mu.Unlock()
	if err != nil {
		return err
	}
	s.appendLocked(bid)
	return nil
}

func (s *BidStore) appendLocked(bid domain.Bid) {
	s.byAsset[bid.AssetID] = append(s.byAsset[bid.AssetID], bid)
	s.byBidder[bid.BidderID] = append(s.byBidder[bid.BidderID], bid)
}

// HighestAccepted returns the accepted bid with the greatest amount for the
// asset, or ErrNotFound when none exists.
func (s *BidStore) HighestAccepted(_ context.Context, assetID string) (domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best domain.Bid
	found := false
	for _, b := range s.byAsset[assetID] {
		if b.Accepted() && (!found || b.Amount > best.Amount) {
			best = b
			found = true
		}
	}
	if !found {
		return domain.Bid{}, domain.ErrNotFound
	}
	return best, nil
}

// PriorBidders returns every distinct bidder with an accepted bid on the
// asset.
func (s *BidStore) PriorBidders(_ context.Context, assetID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var bidders []string
	for _, b := range s.byAsset[assetID] {
		if b.Accepted() && !seen[b.BidderID] {
			seen[b.BidderID] = true
			bidders = append(bidders, b.BidderID)
		}
	}
	return bidders, nil
}

// ListByAsset returns ledger entries for an asset, newest first.
func (s *BidStore) ListByAsset(_ context.Context, assetID string, opts domain.ListOpts) ([]domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterBids(s.byAsset[assetID], opts), nil
}

// ListByBidder returns ledger entries placed by a bidder, newest first.
func (s *BidStore) ListByBidder(_ context.Context, bidderID string, opts domain.ListOpts) ([]domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterBids(s.byBidder[bidderID], opts), nil
}

// filterBids applies time filters and pagination, returning newest first.
// The input slice is in append order (non-decreasing PlacedAt).
func filterBids(bids []domain.Bid, opts domain.ListOpts) []domain.Bid {
	out := make([]domain.Bid, 0, len(bids))
	for i := len(bids) - 1; i >= 0; i-- {
		b := bids[i]
		if opts.Since != nil && b.PlacedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && b.PlacedAt.After(*opts.Until) {
			continue
		}
		out = append(out, b)
	}
	return paginate(out, opts)
}

// Compile-time interface check.
var _ domain.BidLedger = (*BidStore)(nil)
