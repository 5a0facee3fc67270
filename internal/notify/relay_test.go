package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/auprolis-code/auprolis/internal/store/memory"
)

// syncSender is a fakeSender safe to read while the relay goroutine runs.
type syncSender struct {
	mu     sync.Mutex
	titles []string
}

func (s *syncSender) Send(_ context.Context, title, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
	return nil
}

func (s *syncSender) Name() string { return "sync" }

func (s *syncSender) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.titles...)
}

func startRelay(t *testing.T, bus domain.SignalBus, sender Sender) {
	t.Helper()

	alerts := NewAlerts(NewNotifier([]Sender{sender}, nil, testLogger), 0)
	relay := NewRelay(bus, alerts, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the relay a moment to register its subscription.
	time.Sleep(50 * time.Millisecond)
}

func TestRelayAlertsOnAuctionEnded(t *testing.T) {
	bus := memory.NewSignalBus()
	sender := &syncSender{}
	startRelay(t, bus, sender)
	ctx := context.Background()

	payload, err := json.Marshal(domain.AuctionEndedEvent{
		Type:            "auction_ended",
		AssetID:         "a7",
		Title:           "lot 7",
		FinalBid:        250000,
		HighestBidderID: "bidder-1",
		EndedAt:         time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, domain.ChannelAssets, payload))

	require.Eventually(t, func() bool {
		titles := sender.snapshot()
		return len(titles) == 1 && titles[0] == "Auction ended: lot 7"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRelayIgnoresOtherEventTypes(t *testing.T) {
	bus := memory.NewSignalBus()
	sender := &syncSender{}
	startRelay(t, bus, sender)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, domain.ChannelAssets, []byte(`{"type":"asset_created","asset_id":"a1"}`)))
	require.NoError(t, bus.Publish(ctx, domain.ChannelAssets, []byte(`not json`)))

	ended, err := json.Marshal(domain.AuctionEndedEvent{
		Type:     "auction_ended",
		AssetID:  "a2",
		Title:    "lot 2",
		EndedAt:  time.Now().UTC(),
		FinalBid: 0,
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, domain.ChannelAssets, ended))

	// Only the terminal transition produced an alert; the malformed and
	// unrelated payloads were skipped without stalling the relay.
	require.Eventually(t, func() bool {
		titles := sender.snapshot()
		return len(titles) == 1 && titles[0] == "Auction ended: lot 2"
	}, 2*time.Second, 10*time.Millisecond)
}
