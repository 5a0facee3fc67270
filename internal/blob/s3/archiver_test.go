package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auprolis-code/auprolis/internal/domain"
	"github.com/auprolis-code/auprolis/internal/store/memory"
)

// captureWriter records uploads in memory.
type captureWriter struct {
	paths        []string
	contentTypes []string
	bodies       [][]byte
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.paths = append(w.paths, path)
	w.contentTypes = append(w.contentTypes, contentType)
	w.bodies = append(w.bodies, body)
	return nil
}

func (w *captureWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return w.Put(ctx, path, data, "")
}

type staticBidSource struct{ bids []domain.Bid }

func (s staticBidSource) ListEndedBefore(context.Context, time.Time, int) ([]domain.Bid, error) {
	return s.bids, nil
}

type staticNotificationSource struct{ ns []domain.Notification }

func (s staticNotificationSource) ListCreatedBefore(context.Context, time.Time, int) ([]domain.Notification, error) {
	return s.ns, nil
}

func TestArchiveBids(t *testing.T) {
	cutoff := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	bids := []domain.Bid{
		{ID: "b1", AssetID: "a1", BidderID: "alice", Amount: 1100, Outcome: domain.BidOutcomeAccepted},
		{ID: "b2", AssetID: "a1", BidderID: "bob", Amount: 1050, Outcome: domain.BidOutcomeRejectedLow},
	}

	writer := &captureWriter{}
	audit := memory.NewAuditStore()
	arch := NewArchiver(writer, staticBidSource{bids}, staticNotificationSource{}, audit)

	count, err := arch.ArchiveBids(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	require.Equal(t, []string{"archive/bids/2026-01.jsonl"}, writer.paths)
	require.Equal(t, []string{"application/x-ndjson"}, writer.contentTypes)

	// One JSON object per line.
	lines := strings.Split(strings.TrimRight(string(writer.bodies[0]), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"b1"`)
	require.Contains(t, lines[1], `"rejected_low"`)

	entries, err := audit.List(context.Background(), domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "archive.bids", entries[0].Event)
}

func TestArchiveBidsEmptySkipsUpload(t *testing.T) {
	writer := &captureWriter{}
	arch := NewArchiver(writer, staticBidSource{}, staticNotificationSource{}, memory.NewAuditStore())

	count, err := arch.ArchiveBids(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, writer.paths)
}

func TestArchiveNotifications(t *testing.T) {
	cutoff := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	ns := []domain.Notification{
		{ID: "n1", RecipientID: "alice", Type: domain.NotificationOutbid},
	}

	writer := &captureWriter{}
	arch := NewArchiver(writer, staticBidSource{}, staticNotificationSource{ns}, memory.NewAuditStore())

	count, err := arch.ArchiveNotifications(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, []string{"archive/notifications/2026-02.jsonl"}, writer.paths)
	require.True(t, bytes.HasSuffix(writer.bodies[0], []byte("\n")))
}
