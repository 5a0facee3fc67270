package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeSender records delivered messages.
type fakeSender struct {
	name   string
	titles []string
	err    error
}

func (s *fakeSender) Send(_ context.Context, title, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	return nil
}

func (s *fakeSender) Name() string { return s.name }

func TestNotifierEventFilter(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{EventAuctionEnded}, testLogger)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, EventBidAccepted, "filtered", "x"))
	require.NoError(t, n.Notify(ctx, EventAuctionEnded, "delivered", "x"))
	require.Equal(t, []string{"delivered"}, sender.titles)

	// NotifyAll bypasses the filter.
	require.NoError(t, n.NotifyAll(ctx, "urgent", "x"))
	require.Equal(t, []string{"delivered", "urgent"}, sender.titles)
}

func TestNotifierEmptyFilterAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, testLogger)

	require.NoError(t, n.Notify(context.Background(), EventError, "anything", "x"))
	require.Len(t, sender.titles, 1)
}

func TestNotifierSenderFailureDoesNotBlockOthers(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("webhook down")}
	working := &fakeSender{name: "working"}
	n := NewNotifier([]Sender{broken, working}, nil, testLogger)

	err := n.Notify(context.Background(), EventError, "title", "x")
	require.Error(t, err)
	require.Equal(t, []string{"title"}, working.titles)
}

func TestAlertsBidAcceptedThreshold(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	alerts := NewAlerts(NewNotifier([]Sender{sender}, nil, testLogger), 10000)
	ctx := context.Background()

	require.NoError(t, alerts.BidAccepted(ctx, "a1", "lot 1", "alice", 5000))
	require.Empty(t, sender.titles)

	require.NoError(t, alerts.BidAccepted(ctx, "a1", "lot 1", "alice", 10000))
	require.Equal(t, []string{"Bid accepted: lot 1"}, sender.titles)
}

func TestAlertsAuctionEnded(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	alerts := NewAlerts(NewNotifier([]Sender{sender}, nil, testLogger), 0)
	endedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, alerts.AuctionEnded(context.Background(), "a1", "lot 1", "alice", 2500, endedAt))
	require.NoError(t, alerts.AuctionEnded(context.Background(), "a2", "lot 2", "", 0, endedAt))
	require.Equal(t, []string{"Auction ended: lot 1", "Auction ended: lot 2"}, sender.titles)
}
