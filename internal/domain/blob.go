package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves archived data from object storage. The operator API
// serves archive listings and downloads through this.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// Archiver copies the bid ledgers and notifications of long-ended auctions
// to cold storage. Nothing is deleted from the primary store here; the
// ledger stays append-only and deletion, if ever, is a separate explicit
// operational step after the archive has been verified.
type Archiver interface {
	ArchiveBids(ctx context.Context, endedBefore time.Time) (int64, error)
	ArchiveNotifications(ctx context.Context, createdBefore time.Time) (int64, error)
}
