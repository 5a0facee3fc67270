package domain

import "time"

// AssetStatus represents the lifecycle state of an auctioned asset.
// The only transition is open -> ended; it is irreversible.
type AssetStatus string

const (
	AssetStatusOpen  AssetStatus = "open"
	AssetStatusEnded AssetStatus = "ended"
)

// AssetCategory classifies the kind of item under auction.
type AssetCategory string

const (
	AssetCategoryVehicle   AssetCategory = "vehicle"
	AssetCategoryProperty  AssetCategory = "property"
	AssetCategoryEquipment AssetCategory = "equipment"
)

// Asset represents one item under auction. The Asset record is the single
// source of truth for the current bid state; the bid ledger holds history.
//
// Monetary amounts are integer currency units (no fractional cents).
type Asset struct {
	ID              string
	Title           string
	Category        AssetCategory
	OwnerID         string
	StartingBid     int64
	CurrentBid      int64     // always >= StartingBid
	HighestBidderID string    // empty until the first accepted bid
	EndAt           time.Time // immutable once set; no extensions
	Status          AssetStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Open reports whether the asset still accepts bids at the given instant.
// Status alone is not sufficient: an asset past its deadline is closed even
// if the clock sweep has not transitioned it yet.
func (a Asset) Open(now time.Time) bool {
	return a.Status == AssetStatusOpen && now.Before(a.EndAt)
}

// MinAcceptableBid returns the smallest amount the next bid must reach.
func (a Asset) MinAcceptableBid(minIncrement int64) int64 {
	return a.CurrentBid + minIncrement
}
