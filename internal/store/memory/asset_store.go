// Package memory implements the domain store, lock, and signal bus
// interfaces entirely in process. It backs the "memory" storage driver (the
// demo deployment with no external services) and the test suites.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// AssetStore is a concurrency-safe in-memory implementation of
// domain.AssetStore.
type AssetStore struct {
	mu     sync.RWMutex
	assets map[string]domain.Asset
}

// NewAssetStore creates an empty in-memory asset store.
func NewAssetStore() *AssetStore {
	return &AssetStore{assets: make(map[string]domain.Asset)}
}

// Create stores a new asset record.
func (s *AssetStore) Create(_ context.Context, asset domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.assets[asset.ID] = asset
	return nil
}

// GetByID retrieves an asset by ID.
func (s *AssetStore) GetByID(_ context.Context, id string) (domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[id]
	if !ok {
		return domain.Asset{}, domain.ErrNotFound
	}
	return asset, nil
}

// SetHighestBid applies an accepted bid. The update is guarded the same way
// as the SQL implementation: it only applies while the asset is open and the
// amount strictly exceeds the stored current bid. A guard failure on an
// existing asset is domain.ErrConflict.
func (s *AssetStore) SetHighestBid(_ context.Context, id string, amount int64, bidderID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setHighestBidLocked(id, amount, bidderID, at)
}

func (s *AssetStore) setHighestBidLocked(id string, amount int64, bidderID string, at time.Time) error {
	asset, ok := s.assets[id]
	if !ok {
		return domain.ErrNotFound
	}
	if asset.Status != domain.AssetStatusOpen || amount <= asset.CurrentBid {
		return domain.ErrConflict
	}
	asset.CurrentBid = amount
	asset.HighestBidderID = bidderID
	asset.UpdatedAt = at
	s.assets[id] = asset
	return nil
}

// MarkEnded transitions an open asset to ended. It reports whether this call
// performed the transition.
func (s *AssetStore) MarkEnded(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if asset.Status != domain.AssetStatusOpen {
		return false, nil
	}
	asset.Status = domain.AssetStatusEnded
	asset.UpdatedAt = at
	s.assets[id] = asset
	return true, nil
}

// ListOpen returns open assets ordered by nearest deadline first.
func (s *AssetStore) ListOpen(_ context.Context, opts domain.ListOpts) ([]domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open []domain.Asset
	for _, a := range s.assets {
		if a.Status == domain.AssetStatusOpen {
			open = append(open, a)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].EndAt.Before(open[j].EndAt) })
	return paginate(open, opts), nil
}

// ListExpired returns open assets whose deadline is at or before now,
// oldest deadline first.
func (s *AssetStore) ListExpired(_ context.Context, now time.Time, limit int) ([]domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []domain.Asset
	for _, a := range s.assets {
		if a.Status == domain.AssetStatusOpen && !now.Before(a.EndAt) {
			expired = append(expired, a)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].EndAt.Before(expired[j].EndAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// Count returns the total number of asset records.
func (s *AssetStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.assets)), nil
}

func paginate[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}

// Compile-time interface check.
var _ domain.AssetStore = (*AssetStore)(nil)
