package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// ArchiveHandler serves the cold-storage archive files the archiver pipeline
// writes to blob storage. Registered only when blob storage is configured.
type ArchiveHandler struct {
	blobs  domain.BlobReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(blobs domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		blobs:  blobs,
		logger: logger,
	}
}

// archiveEntry is one archived file in a listing.
type archiveEntry struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// listArchivesResponse wraps the archive listing output.
type listArchivesResponse struct {
	Archives []archiveEntry `json:"archives"`
	Total    int            `json:"total"`
}

// validArchiveKind reports whether the kind segment names an archive the
// pipeline actually produces.
func validArchiveKind(kind string) bool {
	return kind == "bids" || kind == "notifications"
}

// ListArchives handles GET /api/archives. An optional ?kind= query narrows
// the listing to one archive kind.
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	prefix := "archive/"
	if kind := r.URL.Query().Get("kind"); kind != "" {
		if !validArchiveKind(kind) {
			writeError(w, http.StatusBadRequest, "kind must be bids or notifications")
			return
		}
		prefix += kind + "/"
	}

	infos, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		logHandler(h.logger, "list_archives").ErrorContext(r.Context(), "list failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}

	entries := make([]archiveEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, archiveEntry{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	writeJSON(w, http.StatusOK, listArchivesResponse{
		Archives: entries,
		Total:    len(entries),
	})
}

// GetArchive handles GET /api/archives/{kind}/{file}, streaming one archived
// JSONL file back to the caller.
func (h *ArchiveHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	kind := pathParam(r, "kind")
	file := pathParam(r, "file")
	if !validArchiveKind(kind) {
		writeError(w, http.StatusBadRequest, "kind must be bids or notifications")
		return
	}
	if file == "" || strings.Contains(file, "/") || !strings.HasSuffix(file, ".jsonl") {
		writeError(w, http.StatusBadRequest, "file must be a .jsonl archive name")
		return
	}

	path := "archive/" + kind + "/" + file
	body, err := h.blobs.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		logHandler(h.logger, "get_archive").ErrorContext(r.Context(), "get failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logHandler(h.logger, "get_archive").WarnContext(r.Context(), "stream interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
