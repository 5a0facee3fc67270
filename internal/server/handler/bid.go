package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// BidService defines the methods that the bid handler requires from the
// service layer.
type BidService interface {
	PlaceBid(ctx context.Context, assetID, bidderID string, amount int64) (domain.Bid, error)
	ListByAsset(ctx context.Context, assetID string, opts domain.ListOpts) ([]domain.Bid, error)
	ListByBidder(ctx context.Context, bidderID string, opts domain.ListOpts) ([]domain.Bid, error)
}

// BidHandler serves bid-related HTTP endpoints.
type BidHandler struct {
	bids   BidService
	logger *slog.Logger
}

// NewBidHandler creates a BidHandler with the given service and logger.
func NewBidHandler(bids BidService, logger *slog.Logger) *BidHandler {
	return &BidHandler{
		bids:   bids,
		logger: logger,
	}
}

// placeBidRequest is the POST body for submitting a bid.
type placeBidRequest struct {
	BidderID string `json:"bidder_id"`
	Amount   int64  `json:"amount"`
}

// bidRejectedResponse is returned when a bid is validly rejected. It carries
// enough detail for the client to correct and resubmit.
type bidRejectedResponse struct {
	Error         string `json:"error"`
	Outcome       string `json:"outcome"`
	MinAcceptable int64  `json:"min_acceptable,omitempty"`
	EndAt         string `json:"end_at,omitempty"`
}

// PlaceBid submits a bid on an asset.
// POST /api/assets/{id}/bids
//
// Responses:
//
//	201 - bid accepted
//	400 - malformed request
//	404 - asset does not exist
//	409 - auction closed
//	422 - amount below the minimum acceptable bid
func (h *BidHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	assetID := pathParam(r, "id")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "missing asset id")
		return
	}

	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.bids.PlaceBid(r.Context(), assetID, req.BidderID, req.Amount)
	if err != nil {
		h.writeBidError(w, r, assetID, err)
		return
	}

	writeJSON(w, http.StatusCreated, bid)
}

// writeBidError maps bid submission failures to HTTP responses. Rejections
// are expected outcomes and are logged at debug level only; infrastructure
// failures get a 500 and an error log.
func (h *BidHandler) writeBidError(w http.ResponseWriter, r *http.Request, assetID string, err error) {
	var rejected *domain.BidRejectedError
	if errors.As(err, &rejected) {
		resp := bidRejectedResponse{
			Error:   rejected.Error(),
			Outcome: string(rejected.Outcome),
		}
		status := http.StatusUnprocessableEntity
		switch rejected.Outcome {
		case domain.BidOutcomeRejectedLow:
			resp.MinAcceptable = rejected.MinAcceptable
		case domain.BidOutcomeRejectedClosed:
			status = http.StatusConflict
			resp.EndAt = rejected.EndAt.Format(time.RFC3339)
		}
		h.logger.DebugContext(r.Context(), "handler: bid rejected",
			slog.String("asset_id", assetID),
			slog.String("outcome", string(rejected.Outcome)),
		)
		writeJSON(w, status, resp)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "asset not found")
	case errors.Is(err, domain.ErrInvalidBid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "handler: place bid failed",
			slog.String("asset_id", assetID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to place bid")
	}
}

// listBidsResponse wraps bid list output with pagination metadata.
type listBidsResponse struct {
	Bids   []domain.Bid `json:"bids"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListAssetBids returns the bid history of an asset, newest first, including
// rejected attempts.
// GET /api/assets/{id}/bids?limit=50&offset=0
func (h *BidHandler) ListAssetBids(w http.ResponseWriter, r *http.Request) {
	assetID := pathParam(r, "id")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "missing asset id")
		return
	}

	opts := parseListOpts(r)
	bids, err := h.bids.ListByAsset(r.Context(), assetID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list asset bids failed",
			slog.String("asset_id", assetID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bids")
		return
	}

	writeJSON(w, http.StatusOK, listBidsResponse{
		Bids:   bids,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// ListBidderBids returns the bids a user has placed, newest first.
// GET /api/bidders/{id}/bids?limit=50&offset=0
func (h *BidHandler) ListBidderBids(w http.ResponseWriter, r *http.Request) {
	bidderID := pathParam(r, "id")
	if bidderID == "" {
		writeError(w, http.StatusBadRequest, "missing bidder id")
		return
	}

	opts := parseListOpts(r)
	bids, err := h.bids.ListByBidder(r.Context(), bidderID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list bidder bids failed",
			slog.String("bidder_id", bidderID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bids")
		return
	}

	writeJSON(w, http.StatusOK, listBidsResponse{
		Bids:   bids,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
