package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auprolis-code/auprolis/internal/domain"
)

func testAsset(id string, endAt time.Time) domain.Asset {
	return domain.Asset{
		ID:          id,
		Title:       "asset " + id,
		Category:    domain.AssetCategoryVehicle,
		OwnerID:     "owner",
		StartingBid: 1000,
		CurrentBid:  1000,
		EndAt:       endAt,
		Status:      domain.AssetStatusOpen,
	}
}

func TestAssetStoreCreateAndGet(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()
	endAt := time.Now().Add(time.Hour)

	require.NoError(t, s.Create(ctx, testAsset("a1", endAt)))
	require.ErrorIs(t, s.Create(ctx, testAsset("a1", endAt)), domain.ErrAlreadyExists)

	got, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "a1", got.ID)

	_, err = s.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssetStoreSetHighestBidGuards(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Create(ctx, testAsset("a1", now.Add(time.Hour))))

	require.NoError(t, s.SetHighestBid(ctx, "a1", 1500, "bidder-1", now))

	// Non-increasing amounts never apply; the asset exists, so the failure
	// is a conflict rather than a missing record.
	require.ErrorIs(t, s.SetHighestBid(ctx, "a1", 1500, "bidder-2", now), domain.ErrConflict)
	require.ErrorIs(t, s.SetHighestBid(ctx, "a1", 1200, "bidder-2", now), domain.ErrConflict)

	// Nor do updates to an ended asset.
	_, err := s.MarkEnded(ctx, "a1", now)
	require.NoError(t, err)
	require.ErrorIs(t, s.SetHighestBid(ctx, "a1", 9000, "bidder-2", now), domain.ErrConflict)

	// A missing asset stays ErrNotFound.
	require.ErrorIs(t, s.SetHighestBid(ctx, "missing", 9000, "bidder-2", now), domain.ErrNotFound)

	got, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(1500), got.CurrentBid)
	require.Equal(t, "bidder-1", got.HighestBidderID)
}

func TestAssetStoreMarkEndedOnce(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Create(ctx, testAsset("a1", now)))

	transitioned, err := s.MarkEnded(ctx, "a1", now)
	require.NoError(t, err)
	require.True(t, transitioned)

	// The transition happens exactly once.
	transitioned, err = s.MarkEnded(ctx, "a1", now)
	require.NoError(t, err)
	require.False(t, transitioned)

	_, err = s.MarkEnded(ctx, "missing", now)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssetStoreListOpenOrdering(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, s.Create(ctx, testAsset("late", base.Add(3*time.Hour))))
	require.NoError(t, s.Create(ctx, testAsset("soon", base.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, testAsset("mid", base.Add(2*time.Hour))))

	open, err := s.ListOpen(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, open, 3)
	// Nearest deadline first.
	require.Equal(t, "soon", open[0].ID)
	require.Equal(t, "mid", open[1].ID)
	require.Equal(t, "late", open[2].ID)

	page, err := s.ListOpen(ctx, domain.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "mid", page[0].ID)
}

func TestAssetStoreListExpired(t *testing.T) {
	s := NewAssetStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Create(ctx, testAsset("past", now.Add(-time.Hour))))
	require.NoError(t, s.Create(ctx, testAsset("exact", now)))
	require.NoError(t, s.Create(ctx, testAsset("future", now.Add(time.Hour))))

	expired, err := s.ListExpired(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	require.Equal(t, "past", expired[0].ID)
	require.Equal(t, "exact", expired[1].ID)
}

func TestBidStoreAppendAccepted(t *testing.T) {
	assets := NewAssetStore()
	s := NewBidStore(assets)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, assets.Create(ctx, testAsset("a1", now.Add(time.Hour))))

	accepted := domain.Bid{
		ID: "b1", AssetID: "a1", BidderID: "bidder-1", Amount: 1500,
		Outcome: domain.BidOutcomeAccepted, PlacedAt: now,
	}
	require.NoError(t, s.AppendAccepted(ctx, accepted))

	got, err := assets.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(1500), got.CurrentBid)
	require.Equal(t, "bidder-1", got.HighestBidderID)

	entries, err := s.ListByAsset(ctx, "a1", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// A stale write is rejected as a conflict and leaves no ledger entry.
	stale := domain.Bid{
		ID: "b2", AssetID: "a1", BidderID: "bidder-2", Amount: 1500,
		Outcome: domain.BidOutcomeAccepted, PlacedAt: now,
	}
	require.ErrorIs(t, s.AppendAccepted(ctx, stale), domain.ErrConflict)

	// Same for a write against an ended asset.
	_, err = assets.MarkEnded(ctx, "a1", now)
	require.NoError(t, err)
	late := domain.Bid{
		ID: "b3", AssetID: "a1", BidderID: "bidder-2", Amount: 9000,
		Outcome: domain.BidOutcomeAccepted, PlacedAt: now,
	}
	require.ErrorIs(t, s.AppendAccepted(ctx, late), domain.ErrConflict)

	unknown := domain.Bid{
		ID: "b4", AssetID: "missing", BidderID: "bidder-2", Amount: 9000,
		Outcome: domain.BidOutcomeAccepted, PlacedAt: now,
	}
	require.ErrorIs(t, s.AppendAccepted(ctx, unknown), domain.ErrNotFound)

	entries, err = s.ListByAsset(ctx, "a1", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestBidStoreLedgerQueries(t *testing.T) {
	s := NewBidStore(NewAssetStore())
	ctx := context.Background()
	base := time.Now().UTC()

	put := func(id, bidder string, amount int64, outcome domain.BidOutcome, offset time.Duration) {
		require.NoError(t, s.Append(ctx, domain.Bid{
			ID: id, AssetID: "a1", BidderID: bidder, Amount: amount,
			Outcome: outcome, PlacedAt: base.Add(offset),
		}))
	}
	put("b1", "alice", 1100, domain.BidOutcomeAccepted, 0)
	put("b2", "bob", 1150, domain.BidOutcomeRejectedLow, time.Second)
	put("b3", "bob", 1200, domain.BidOutcomeAccepted, 2*time.Second)
	put("b4", "alice", 1300, domain.BidOutcomeAccepted, 3*time.Second)

	highest, err := s.HighestAccepted(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "b4", highest.ID)

	_, err = s.HighestAccepted(ctx, "empty")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Distinct accepted bidders only; rejected attempts do not count.
	bidders, err := s.PriorBidders(ctx, "a1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alice", "bob"}, bidders)

	byAsset, err := s.ListByAsset(ctx, "a1", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, byAsset, 4)
	require.Equal(t, "b4", byAsset[0].ID) // newest first

	byBidder, err := s.ListByBidder(ctx, "bob", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, byBidder, 2)

	since := base.Add(2 * time.Second)
	recent, err := s.ListByAsset(ctx, "a1", domain.ListOpts{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestNotificationStoreMarkRead(t *testing.T) {
	s := NewNotificationStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, domain.Notification{
		ID: "n1", RecipientID: "alice", Type: domain.NotificationOutbid,
	}))

	// Only the recipient can mark their notification read.
	require.ErrorIs(t, s.MarkRead(ctx, "n1", "bob"), domain.ErrNotFound)
	require.ErrorIs(t, s.MarkRead(ctx, "missing", "alice"), domain.ErrNotFound)
	require.NoError(t, s.MarkRead(ctx, "n1", "alice"))

	unread, err := s.CountUnread(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, unread)

	got, err := s.ListByRecipient(ctx, "alice", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Read)
}

func TestLockManagerMutualExclusion(t *testing.T) {
	lm := NewLockManager()
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "asset:a1", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "asset:a1", time.Minute)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	// Distinct keys are independent.
	unlock2, err := lm.Acquire(ctx, "asset:a2", time.Minute)
	require.NoError(t, err)
	unlock2()

	unlock()
	unlock() // double release is a no-op

	_, err = lm.Acquire(ctx, "asset:a1", time.Minute)
	require.NoError(t, err)
}

func TestLockManagerTTLReclaim(t *testing.T) {
	lm := NewLockManager()
	ctx := context.Background()

	staleUnlock, err := lm.Acquire(ctx, "asset:a1", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	// The expired grant can be reclaimed by a new holder.
	unlock, err := lm.Acquire(ctx, "asset:a1", time.Minute)
	require.NoError(t, err)

	// The stale holder's release must not free the new grant.
	staleUnlock()
	_, err = lm.Acquire(ctx, "asset:a1", time.Minute)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
}

func TestSignalBusPubSub(t *testing.T) {
	sb := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exact, err := sb.Subscribe(ctx, domain.ChannelBids)
	require.NoError(t, err)
	wildcard, err := sb.Subscribe(ctx, domain.ChannelAssets+":*")
	require.NoError(t, err)

	require.NoError(t, sb.Publish(ctx, domain.ChannelBids, []byte("bid")))
	require.NoError(t, sb.Publish(ctx, domain.AssetChannel("a1"), []byte("asset")))

	recv := func(ch <-chan []byte) string {
		select {
		case p := <-ch:
			return string(p)
		case <-time.After(time.Second):
			t.Fatal("no message received")
			return ""
		}
	}
	require.Equal(t, "bid", recv(exact))
	require.Equal(t, "asset", recv(wildcard))

	// No cross-talk between channels.
	select {
	case p := <-exact:
		t.Fatalf("unexpected message on %s: %s", domain.ChannelBids, p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSignalBusStream(t *testing.T) {
	sb := NewSignalBus()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, sb.StreamAppend(ctx, "stream:test", []byte(fmt.Sprintf("m%d", i))))
	}

	first, err := sb.StreamRead(ctx, "stream:test", "0", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, "m0", string(first[0].Payload))

	rest, err := sb.StreamRead(ctx, "stream:test", first[1].ID, 0)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	require.Equal(t, "m2", string(rest[0].Payload))

	empty, err := sb.StreamRead(ctx, "stream:test", rest[2].ID, 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestAssetCacheExpiry(t *testing.T) {
	c := NewAssetCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, domain.Asset{ID: "a1", CurrentBid: 1500}))

	got, err := c.Get(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(1500), got.CurrentBid)

	require.NoError(t, c.Invalidate(ctx, "a1"))
	_, err = c.Get(ctx, "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
