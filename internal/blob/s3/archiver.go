package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// Narrow store interfaces required by the archiver. The archiver only needs
// the time-ranged queries it actually calls, not the full store interfaces;
// the Postgres stores satisfy these through their ListEndedBefore and
// ListCreatedBefore methods.

// BidArchiveStore provides read access to bids for archival purposes.
type BidArchiveStore interface {
	// ListEndedBefore returns bids belonging to assets whose auctions ended
	// at or before the cutoff. A limit of 0 means no limit.
	ListEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Bid, error)
}

// NotificationArchiveStore provides read access to notifications for
// archival purposes.
type NotificationArchiveStore interface {
	// ListCreatedBefore returns notifications created at or before the
	// cutoff. A limit of 0 means no limit.
	ListCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Notification, error)
}

// ArchiveImpl implements domain.Archiver by querying the stores for cold
// records, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here. The bid ledger is append-only; pruning, if ever, is a
// separate explicit step after the archive has been verified.
type ArchiveImpl struct {
	writer        domain.BlobWriter
	bids          BidArchiveStore
	notifications NotificationArchiveStore
	audit         domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	bids BidArchiveStore,
	notifications NotificationArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:        writer,
		bids:          bids,
		notifications: notifications,
		audit:         audit,
	}
}

// ArchiveBids queries the bid ledgers of auctions that ended at or before
// the cutoff, serializes them to JSONL, and uploads the file to S3 at
// archive/bids/YYYY-MM.jsonl. The archival event is recorded in the audit
// log and the count of archived records is returned.
func (a *ArchiveImpl) ArchiveBids(ctx context.Context, endedBefore time.Time) (int64, error) {
	bids, err := a.bids.ListEndedBefore(ctx, endedBefore, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive bids query: %w", err)
	}
	if len(bids) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(bids)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive bids marshal: %w", err)
	}

	path := archivePath("bids", endedBefore)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive bids upload: %w", err)
	}

	count := int64(len(bids))

	if err := a.audit.Log(ctx, "archive.bids", map[string]any{
		"path":   path,
		"count":  count,
		"before": endedBefore.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive bids audit log: %w", err)
	}

	return count, nil
}

// ArchiveNotifications queries notifications created at or before the
// cutoff, serializes them to JSONL, and uploads the file to S3 at
// archive/notifications/YYYY-MM.jsonl. The archival event is recorded in the
// audit log and the count of archived records is returned.
func (a *ArchiveImpl) ArchiveNotifications(ctx context.Context, createdBefore time.Time) (int64, error) {
	notifications, err := a.notifications.ListCreatedBefore(ctx, createdBefore, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive notifications query: %w", err)
	}
	if len(notifications) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(notifications)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive notifications marshal: %w", err)
	}

	path := archivePath("notifications", createdBefore)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive notifications upload: %w", err)
	}

	count := int64(len(notifications))

	if err := a.audit.Log(ctx, "archive.notifications", map[string]any{
		"path":   path,
		"count":  count,
		"before": createdBefore.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive notifications audit log: %w", err)
	}

	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/bids/2025-01.jsonl
//	archive/notifications/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
