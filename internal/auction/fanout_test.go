package auction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/auprolis-code/auprolis/internal/store/memory"
)

type fanoutFixture struct {
	ledger        *memory.BidStore
	notifications *memory.NotificationStore
	fanout        *Fanout
	now           time.Time
}

func newFanoutFixture(t *testing.T) *fanoutFixture {
	t.Helper()

	f := &fanoutFixture{
		ledger:        memory.NewBidStore(memory.NewAssetStore()),
		notifications: memory.NewNotificationStore(),
		now:           time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	f.fanout = NewFanout(f.ledger, f.notifications, testLogger)
	f.fanout.now = func() time.Time { return f.now }
	return f
}

func (f *fanoutFixture) appendAccepted(t *testing.T, assetID, bidderID string, amount int64) domain.Bid {
	t.Helper()

	bid := domain.Bid{
		ID:       bidderID + "-" + assetID,
		AssetID:  assetID,
		BidderID: bidderID,
		Amount:   amount,
		Outcome:  domain.BidOutcomeAccepted,
		PlacedAt: f.now,
	}
	require.NoError(t, f.ledger.Append(context.Background(), bid))
	return bid
}

func TestFanoutNotifiesOwner(t *testing.T) {
	f := newFanoutFixture(t)
	ctx := context.Background()

	asset := domain.Asset{ID: "a1", OwnerID: "owner"}
	bid := f.appendAccepted(t, "a1", "bidder-1", 1100)

	created := f.fanout.OnBidAccepted(ctx, asset, "", bid)
	require.Len(t, created, 1)
	require.Equal(t, "owner", created[0].RecipientID)
	require.Equal(t, domain.NotificationNewBid, created[0].Type)
	require.Equal(t, bid.ID, created[0].BidID)
	require.Equal(t, int64(1100), created[0].Amount)

	stored, err := f.notifications.ListByRecipient(ctx, "owner", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestFanoutSkipsOwnerBiddingOnOwnAsset(t *testing.T) {
	f := newFanoutFixture(t)

	asset := domain.Asset{ID: "a1", OwnerID: "owner"}
	bid := f.appendAccepted(t, "a1", "owner", 1100)

	created := f.fanout.OnBidAccepted(context.Background(), asset, "", bid)
	require.Empty(t, created)
}

func TestFanoutOutbidDeduplication(t *testing.T) {
	f := newFanoutFixture(t)
	ctx := context.Background()
	asset := domain.Asset{ID: "a1", OwnerID: "owner"}

	// bidder-1 placed two accepted bids, bidder-2 one. The winning bid comes
	// from bidder-3.
	f.appendAccepted(t, "a1", "bidder-1", 1100)
	f.appendAccepted(t, "a1", "bidder-2", 1200)
	bid := domain.Bid{
		ID: "win", AssetID: "a1", BidderID: "bidder-1", Amount: 1300,
		Outcome: domain.BidOutcomeAccepted, PlacedAt: f.now,
	}
	require.NoError(t, f.ledger.Append(ctx, bid))
	winning := f.appendAccepted(t, "a1", "bidder-3", 1400)

	created := f.fanout.OnBidAccepted(ctx, asset, "bidder-1", winning)

	byRecipient := map[string]int{}
	for _, n := range created {
		byRecipient[n.RecipientID]++
	}
	// Owner gets new_bid; each prior bidder gets exactly one outbid despite
	// bidder-1 appearing twice in the ledger.
	require.Equal(t, map[string]int{"owner": 1, "bidder-1": 1, "bidder-2": 1}, byRecipient)
}

func TestFanoutExcludesNewBidderFromOutbid(t *testing.T) {
	f := newFanoutFixture(t)
	ctx := context.Background()
	asset := domain.Asset{ID: "a1", OwnerID: "owner"}

	f.appendAccepted(t, "a1", "bidder-1", 1100)
	// bidder-1 raises their own bid; they must not be told they outbid
	// themselves.
	winning := domain.Bid{
		ID: "raise", AssetID: "a1", BidderID: "bidder-1", Amount: 1300,
		Outcome: domain.BidOutcomeAccepted, PlacedAt: f.now,
	}
	require.NoError(t, f.ledger.Append(ctx, winning))

	created := f.fanout.OnBidAccepted(ctx, asset, "bidder-1", winning)
	require.Len(t, created, 1)
	require.Equal(t, "owner", created[0].RecipientID)
	require.Equal(t, domain.NotificationNewBid, created[0].Type)
}

func TestFanoutIgnoresRejectedAttempts(t *testing.T) {
	f := newFanoutFixture(t)
	ctx := context.Background()
	asset := domain.Asset{ID: "a1", OwnerID: "owner"}

	require.NoError(t, f.ledger.Append(ctx, domain.Bid{
		ID: "low", AssetID: "a1", BidderID: "bidder-1", Amount: 900,
		Outcome: domain.BidOutcomeRejectedLow, PlacedAt: f.now,
	}))
	winning := f.appendAccepted(t, "a1", "bidder-2", 1100)

	created := f.fanout.OnBidAccepted(ctx, asset, "", winning)
	// bidder-1 never had an accepted bid, so no outbid notification.
	require.Len(t, created, 1)
	require.Equal(t, "owner", created[0].RecipientID)
}

func TestFanoutDegradesWhenLedgerUnavailable(t *testing.T) {
	f := newFanoutFixture(t)
	ctx := context.Background()
	asset := domain.Asset{ID: "a1", OwnerID: "owner"}

	f.fanout.ledger = &failingPriorLedger{err: errors.New("connection refused")}

	winning := domain.Bid{
		ID: "win", AssetID: "a1", BidderID: "bidder-2", Amount: 1100,
		Outcome: domain.BidOutcomeAccepted, PlacedAt: f.now,
	}
	created := f.fanout.OnBidAccepted(ctx, asset, "bidder-1", winning)

	// Falls back to notifying only the displaced highest bidder.
	byRecipient := map[string]domain.NotificationType{}
	for _, n := range created {
		byRecipient[n.RecipientID] = n.Type
	}
	require.Equal(t, map[string]domain.NotificationType{
		"owner":    domain.NotificationNewBid,
		"bidder-1": domain.NotificationOutbid,
	}, byRecipient)
}

func TestFanoutWriteFailureIsBestEffort(t *testing.T) {
	f := newFanoutFixture(t)
	ctx := context.Background()
	asset := domain.Asset{ID: "a1", OwnerID: "owner"}

	f.appendAccepted(t, "a1", "bidder-1", 1100)
	winning := f.appendAccepted(t, "a1", "bidder-2", 1200)

	f.fanout.notifications = &failingNotificationStore{err: errors.New("connection refused")}

	// Nothing is stored, nothing panics, and no error escapes: delivery
	// failures never affect the accepted bid.
	created := f.fanout.OnBidAccepted(ctx, asset, "bidder-1", winning)
	require.Empty(t, created)
}

type failingPriorLedger struct {
	domain.BidLedger
	err error
}

func (l *failingPriorLedger) PriorBidders(context.Context, string) ([]string, error) {
	return nil, l.err
}

type failingNotificationStore struct {
	domain.NotificationStore
	err error
}

func (s *failingNotificationStore) Create(context.Context, domain.Notification) error {
	return s.err
}
