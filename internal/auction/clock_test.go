package auction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/auprolis-code/auprolis/internal/store/memory"
)

type clockFixture struct {
	assets *memory.AssetStore
	locks  *memory.LockManager
	bus    *memory.SignalBus
	clock  *Clock
	now    time.Time
}

func newClockFixture(t *testing.T) *clockFixture {
	t.Helper()

	f := &clockFixture{
		assets: memory.NewAssetStore(),
		locks:  memory.NewLockManager(),
		bus:    memory.NewSignalBus(),
		now:    time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	f.clock = NewClock(f.assets, f.locks, f.bus, memory.NewAuditStore(), testLogger)
	f.clock.now = func() time.Time { return f.now }
	return f
}

func (f *clockFixture) createAsset(t *testing.T, id string, endAt time.Time) {
	t.Helper()

	require.NoError(t, f.assets.Create(context.Background(), domain.Asset{
		ID:          id,
		Title:       "asset " + id,
		Category:    domain.AssetCategoryEquipment,
		OwnerID:     "owner",
		StartingBid: 1000,
		CurrentBid:  1000,
		EndAt:       endAt,
		Status:      domain.AssetStatusOpen,
		CreatedAt:   f.now,
		UpdatedAt:   f.now,
	}))
}

func TestSweepEndsExpiredAssets(t *testing.T) {
	f := newClockFixture(t)
	ctx := context.Background()

	f.createAsset(t, "expired-1", f.now.Add(-time.Hour))
	f.createAsset(t, "expired-2", f.now.Add(-time.Minute))
	f.createAsset(t, "still-open", f.now.Add(time.Hour))

	ended, err := f.clock.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, ended)

	for id, want := range map[string]domain.AssetStatus{
		"expired-1":  domain.AssetStatusEnded,
		"expired-2":  domain.AssetStatusEnded,
		"still-open": domain.AssetStatusOpen,
	} {
		asset, err := f.assets.GetByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, asset.Status, id)
	}
}

func TestSweepAtExactDeadline(t *testing.T) {
	f := newClockFixture(t)
	ctx := context.Background()

	// An auction whose deadline equals now is closed: Open requires
	// now < EndAt.
	f.createAsset(t, "a1", f.now)

	ended, err := f.clock.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ended)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newClockFixture(t)
	ctx := context.Background()

	f.createAsset(t, "a1", f.now.Add(-time.Hour))

	ended, err := f.clock.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ended)

	// Second pass sees no open expired assets.
	ended, err = f.clock.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, ended)
}

func TestSweepSkipsLockedAsset(t *testing.T) {
	f := newClockFixture(t)
	ctx := context.Background()

	f.createAsset(t, "a1", f.now.Add(-time.Hour))

	// A bid submission currently holds the asset lock.
	unlock, err := f.locks.Acquire(ctx, "asset:a1", time.Minute)
	require.NoError(t, err)

	ended, err := f.clock.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, ended)

	// After the submission releases, the next pass transitions it.
	unlock()
	ended, err = f.clock.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ended)
}

func TestSweepPublishesEndedEvent(t *testing.T) {
	f := newClockFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.createAsset(t, "a1", f.now.Add(-time.Hour))

	events, err := f.bus.Subscribe(ctx, domain.ChannelAssets)
	require.NoError(t, err)

	ended, err := f.clock.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ended)

	select {
	case payload := <-events:
		require.Contains(t, string(payload), `"type":"auction_ended"`)
		require.Contains(t, string(payload), `"asset_id":"a1"`)
	case <-time.After(time.Second):
		t.Fatal("no auction_ended event received")
	}
}
