package domain

import "time"

// Signal bus channels carrying auction events. Asset-scoped channels use the
// "ch:asset:{id}" form so dashboards can subscribe per asset.
const (
	ChannelBids     = "ch:bid"
	ChannelAssets   = "ch:asset"
	ChannelStatus   = "ch:status"
	StreamBidEvents = "stream:bids"
)

// AssetChannel returns the per-asset event channel name.
func AssetChannel(assetID string) string {
	return ChannelAssets + ":" + assetID
}

// BidEvent is published on the signal bus after a bid decision. Rejected
// attempts are published too so dashboards can surface contention.
type BidEvent struct {
	Type            string     `json:"type"` // "bid_accepted" or "bid_rejected"
	AssetID         string     `json:"asset_id"`
	BidID           string     `json:"bid_id"`
	BidderID        string     `json:"bidder_id"`
	Amount          int64      `json:"amount"`
	Outcome         BidOutcome `json:"outcome"`
	CurrentBid      int64      `json:"current_bid"`
	HighestBidderID string     `json:"highest_bidder_id,omitempty"`
	PlacedAt        time.Time  `json:"placed_at"`
}

// AuctionEndedEvent is published on the signal bus when the clock (or a lazy
// expiry on a bid attempt) transitions an asset to ended.
type AuctionEndedEvent struct {
	Type            string    `json:"type"` // "auction_ended"
	AssetID         string    `json:"asset_id"`
	Title           string    `json:"title,omitempty"`
	FinalBid        int64     `json:"final_bid"`
	HighestBidderID string    `json:"highest_bidder_id,omitempty"`
	EndedAt         time.Time `json:"ended_at"`
}
