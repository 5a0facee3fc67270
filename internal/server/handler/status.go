package handler

import (
	"net/http"
)

// StatusHandler serves the backend status (storage mode, bid increment) for
// the dashboard.
type StatusHandler struct {
	Mode         string
	MinIncrement int64
}

// NewStatusHandler creates a StatusHandler with the given storage mode and
// minimum bid increment.
func NewStatusHandler(mode string, minIncrement int64) *StatusHandler {
	return &StatusHandler{Mode: mode, MinIncrement: minIncrement}
}

// GetStatus responds with the current backend mode and bid increment.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":          h.Mode,
		"min_increment": h.MinIncrement,
	})
}
