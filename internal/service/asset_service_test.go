package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/auprolis-code/auprolis/internal/store/memory"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newAssetService() (*AssetService, *memory.AssetStore, *memory.AssetCache) {
	store := memory.NewAssetStore()
	cache := memory.NewAssetCache()
	return NewAssetService(store, cache, testLogger), store, cache
}

func TestCreateListing(t *testing.T) {
	svc, store, _ := newAssetService()
	ctx := context.Background()
	endAt := time.Now().Add(24 * time.Hour)

	asset, err := svc.CreateListing(ctx, CreateListingParams{
		Title:       "  excavator lot 42  ",
		Category:    domain.AssetCategoryEquipment,
		OwnerID:     "owner",
		StartingBid: 50000,
		EndAt:       endAt,
	})
	require.NoError(t, err)
	require.NotEmpty(t, asset.ID)
	require.Equal(t, "excavator lot 42", asset.Title)
	require.Equal(t, int64(50000), asset.CurrentBid)
	require.Equal(t, domain.AssetStatusOpen, asset.Status)
	require.Empty(t, asset.HighestBidderID)

	stored, err := store.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	require.Equal(t, asset.ID, stored.ID)
}

func TestCreateListingValidation(t *testing.T) {
	svc, _, _ := newAssetService()
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	valid := CreateListingParams{
		Title:       "lot 1",
		Category:    domain.AssetCategoryVehicle,
		OwnerID:     "owner",
		StartingBid: 1000,
		EndAt:       future,
	}

	tests := []struct {
		name   string
		mutate func(p *CreateListingParams)
	}{
		{"empty_title", func(p *CreateListingParams) { p.Title = "   " }},
		{"title_too_long", func(p *CreateListingParams) { p.Title = strings.Repeat("x", 201) }},
		{"unknown_category", func(p *CreateListingParams) { p.Category = "livestock" }},
		{"missing_owner", func(p *CreateListingParams) { p.OwnerID = "" }},
		{"negative_starting_bid", func(p *CreateListingParams) { p.StartingBid = -1 }},
		{"end_in_past", func(p *CreateListingParams) { p.EndAt = time.Now().Add(-time.Minute) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := svc.CreateListing(ctx, p)
			require.ErrorIs(t, err, domain.ErrInvalidListing)
		})
	}
}

func TestGetAssetCacheAside(t *testing.T) {
	svc, store, cache := newAssetService()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, domain.Asset{
		ID: "a1", Title: "lot 1", Category: domain.AssetCategoryVehicle,
		OwnerID: "owner", StartingBid: 1000, CurrentBid: 1000,
		EndAt: time.Now().Add(time.Hour), Status: domain.AssetStatusOpen,
	}))

	// First read misses the cache and back-fills it.
	got, err := svc.GetAsset(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "a1", got.ID)

	cached, err := cache.Get(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "a1", cached.ID)

	// A cached stale entry is served until invalidated.
	require.NoError(t, cache.Set(ctx, domain.Asset{ID: "a1", CurrentBid: 9999}))
	got, err = svc.GetAsset(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(9999), got.CurrentBid)

	require.NoError(t, cache.Invalidate(ctx, "a1"))
	got, err = svc.GetAsset(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), got.CurrentBid)

	_, err = svc.GetAsset(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
