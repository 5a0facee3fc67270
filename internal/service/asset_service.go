// Package service composes the domain stores, caches, and the auction core
// into the operations the API surface exposes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// maxListingTitleLen bounds listing titles; anything longer is operator
// error or abuse.
const maxListingTitleLen = 200

// AssetService handles listing creation and asset browsing.
type AssetService struct {
	assets domain.AssetStore
	cache  domain.AssetCache
	logger *slog.Logger
}

// NewAssetService creates an AssetService with all required dependencies.
func NewAssetService(
	assets domain.AssetStore,
	cache domain.AssetCache,
	logger *slog.Logger,
) *AssetService {
	return &AssetService{
		assets: assets,
		cache:  cache,
		logger: logger,
	}
}

// CreateListingParams carries the caller-supplied fields for a new listing.
type CreateListingParams struct {
	Title       string
	Category    domain.AssetCategory
	OwnerID     string
	StartingBid int64
	EndAt       time.Time
}

// CreateListing validates the params and creates a new open asset. The end
// time is immutable once set; there is no extension operation anywhere in
// the system.
func (s *AssetService) CreateListing(ctx context.Context, p CreateListingParams) (domain.Asset, error) {
	if err := validateListing(p, time.Now().UTC()); err != nil {
		return domain.Asset{}, err
	}

	now := time.Now().UTC()
	asset := domain.Asset{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(p.Title),
		Category:    p.Category,
		OwnerID:     p.OwnerID,
		StartingBid: p.StartingBid,
		CurrentBid:  p.StartingBid,
		EndAt:       p.EndAt.UTC(),
		Status:      domain.AssetStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.assets.Create(ctx, asset); err != nil {
		return domain.Asset{}, fmt.Errorf("asset_service: create listing: %w", err)
	}

	s.logger.InfoContext(ctx, "asset_service: listing created",
		slog.String("asset_id", asset.ID),
		slog.String("owner_id", asset.OwnerID),
		slog.Time("end_at", asset.EndAt),
	)

	return asset, nil
}

func validateListing(p CreateListingParams, now time.Time) error {
	title := strings.TrimSpace(p.Title)
	if title == "" || len(title) > maxListingTitleLen {
		return fmt.Errorf("asset_service: title must be 1-%d characters: %w",
			maxListingTitleLen, domain.ErrInvalidListing)
	}
	switch p.Category {
	case domain.AssetCategoryVehicle, domain.AssetCategoryProperty, domain.AssetCategoryEquipment:
	default:
		return fmt.Errorf("asset_service: unknown category %q: %w", p.Category, domain.ErrInvalidListing)
	}
	if p.OwnerID == "" {
		return fmt.Errorf("asset_service: missing owner id: %w", domain.ErrInvalidListing)
	}
	if p.StartingBid < 0 {
		return fmt.Errorf("asset_service: negative starting bid: %w", domain.ErrInvalidListing)
	}
	if !p.EndAt.After(now) {
		return fmt.Errorf("asset_service: end time must be in the future: %w", domain.ErrInvalidListing)
	}
	return nil
}

// GetAsset retrieves an asset by ID, checking the cache first and falling
// back to the persistent store on a cache miss.
func (s *AssetService) GetAsset(ctx context.Context, id string) (domain.Asset, error) {
	// Try the cache first.
	a, err := s.cache.Get(ctx, id)
	if err == nil {
		return a, nil
	}

	// Cache miss or error -- fall through to store.
	a, err = s.assets.GetByID(ctx, id)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("asset_service: get by id %q: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, a); cacheErr != nil {
		s.logger.WarnContext(ctx, "asset_service: cache set failed",
			slog.String("asset_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return a, nil
}

// ListOpen returns open assets directly from the persistent store, soonest
// deadline first.
func (s *AssetService) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Asset, error) {
	assets, err := s.assets.ListOpen(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("asset_service: list open: %w", err)
	}
	return assets, nil
}

// Count returns the total number of assets in the persistent store.
func (s *AssetService) Count(ctx context.Context) (int64, error) {
	count, err := s.assets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("asset_service: count: %w", err)
	}
	return count, nil
}
