package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/auprolis-code/auprolis/internal/service"
)

// AssetService defines the methods that the asset handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type AssetService interface {
	CreateListing(ctx context.Context, p service.CreateListingParams) (domain.Asset, error)
	GetAsset(ctx context.Context, id string) (domain.Asset, error)
	ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Asset, error)
	Count(ctx context.Context) (int64, error)
}

// AssetHandler serves asset-related HTTP endpoints.
type AssetHandler struct {
	assets       AssetService
	minIncrement int64
	logger       *slog.Logger
}

// NewAssetHandler creates an AssetHandler with the given service and logger.
// minIncrement is echoed in asset detail responses so clients can show the
// minimum acceptable next bid.
func NewAssetHandler(assets AssetService, minIncrement int64, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{
		assets:       assets,
		minIncrement: minIncrement,
		logger:       logger,
	}
}

// listAssetsResponse wraps the list endpoint output with metadata.
type listAssetsResponse struct {
	Assets []domain.Asset `json:"assets"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListAssets returns open assets with pagination, soonest deadline first.
// GET /api/assets?limit=50&offset=0
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	assets, err := h.assets.ListOpen(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list assets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list assets")
		return
	}

	total, err := h.assets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count assets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count assets")
		return
	}

	writeJSON(w, http.StatusOK, listAssetsResponse{
		Assets: assets,
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// assetDetailResponse augments the asset with the amount the next bid must
// reach to be accepted.
type assetDetailResponse struct {
	Asset            domain.Asset `json:"asset"`
	MinAcceptableBid int64        `json:"min_acceptable_bid"`
}

// GetAsset returns a single asset by its ID.
// GET /api/assets/{id}
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing asset id")
		return
	}

	asset, err := h.assets.GetAsset(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "asset not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get asset failed",
			slog.String("asset_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get asset")
		return
	}

	writeJSON(w, http.StatusOK, assetDetailResponse{
		Asset:            asset,
		MinAcceptableBid: asset.MinAcceptableBid(h.minIncrement),
	})
}

// createListingRequest is the POST body for creating a new listing.
type createListingRequest struct {
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	OwnerID     string    `json:"owner_id"`
	StartingBid int64     `json:"starting_bid"`
	EndAt       time.Time `json:"end_at"`
}

// CreateListing creates a new open auction listing.
// POST /api/assets
func (h *AssetHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := h.assets.CreateListing(r.Context(), service.CreateListingParams{
		Title:       req.Title,
		Category:    domain.AssetCategory(req.Category),
		OwnerID:     req.OwnerID,
		StartingBid: req.StartingBid,
		EndAt:       req.EndAt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidListing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create listing failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create listing")
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}
