package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// fakeBlobReader serves canned archive objects keyed by path.
type fakeBlobReader struct {
	objects map[string]string
}

func (f *fakeBlobReader) Get(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := f.objects[path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, domain.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeBlobReader) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for path, body := range f.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{
				Path:         path,
				Size:         int64(len(body)),
				LastModified: time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC),
			})
		}
	}
	return infos, nil
}

// getJSON issues a GET and decodes a JSON object response.
func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp, decoded
}

func newArchiveServer(t *testing.T, blobs domain.BlobReader) *httptest.Server {
	t.Helper()

	h := NewArchiveHandler(blobs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/archives", h.ListArchives)
	mux.HandleFunc("GET /api/archives/{kind}/{file}", h.GetArchive)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListArchives(t *testing.T) {
	blobs := &fakeBlobReader{objects: map[string]string{
		"archive/bids/2026-01.jsonl":          `{"id":"b1"}` + "\n",
		"archive/notifications/2026-01.jsonl": `{"id":"n1"}` + "\n",
	}}
	srv := newArchiveServer(t, blobs)

	resp, body := getJSON(t, srv.URL+"/api/archives")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(2), body["total"])

	resp, body = getJSON(t, srv.URL+"/api/archives?kind=bids")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), body["total"])
	archives := body["archives"].([]any)
	entry := archives[0].(map[string]any)
	require.Equal(t, "archive/bids/2026-01.jsonl", entry["path"])

	resp, _ = getJSON(t, srv.URL+"/api/archives?kind=trades")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetArchiveStreamsJSONL(t *testing.T) {
	content := `{"id":"b1","amount":1500}` + "\n" + `{"id":"b2","amount":2000}` + "\n"
	blobs := &fakeBlobReader{objects: map[string]string{
		"archive/bids/2026-01.jsonl": content,
	}}
	srv := newArchiveServer(t, blobs)

	resp, err := http.Get(srv.URL + "/api/archives/bids/2026-01.jsonl")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, content, string(got))
}

func TestGetArchiveErrors(t *testing.T) {
	srv := newArchiveServer(t, &fakeBlobReader{objects: map[string]string{}})

	resp, _ := getJSON(t, srv.URL+"/api/archives/bids/2026-01.jsonl")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = getJSON(t, srv.URL+"/api/archives/trades/2026-01.jsonl")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = getJSON(t, srv.URL+"/api/archives/bids/2026-01.csv")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
