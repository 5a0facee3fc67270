package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auprolis-code/auprolis/internal/auction"
	"github.com/auprolis-code/auprolis/internal/notify"
	"github.com/auprolis-code/auprolis/internal/store/memory"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// noopArchiver satisfies domain.Archiver without touching any store.
type noopArchiver struct{}

func (noopArchiver) ArchiveBids(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (noopArchiver) ArchiveNotifications(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newTestClock() *auction.Clock {
	assets := memory.NewAssetStore()
	return auction.NewClock(assets, memory.NewLockManager(), memory.NewSignalBus(), memory.NewAuditStore(), testLogger)
}

func TestOrchestratorAlertsOnLoopFailure(t *testing.T) {
	sender := &recordingSender{}
	alerts := notify.NewAlerts(notify.NewNotifier([]notify.Sender{sender}, nil, testLogger), 0)

	// An unparseable cron expression kills the archive loop immediately,
	// which is the failure path that should page operators.
	archiver := NewArchiver(noopArchiver{}, 90, testLogger)
	o := NewOrchestrator(newTestClock(), archiver, alerts, time.Hour, "not a cron", testLogger)

	err := o.Run(context.Background())
	require.Error(t, err)
	require.Len(t, sender.titles, 1)
	require.Equal(t, "Error in pipeline", sender.titles[0])
}

func TestOrchestratorCleanShutdownSendsNoAlert(t *testing.T) {
	sender := &recordingSender{}
	alerts := notify.NewAlerts(notify.NewNotifier([]notify.Sender{sender}, nil, testLogger), 0)

	o := NewOrchestrator(newTestClock(), nil, alerts, 10*time.Millisecond, "", testLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, o.Run(ctx))
	require.Empty(t, sender.titles)
}

// recordingSender captures alert titles.
type recordingSender struct {
	titles []string
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	s.titles = append(s.titles, title)
	return nil
}

func (s *recordingSender) Name() string { return "recording" }
