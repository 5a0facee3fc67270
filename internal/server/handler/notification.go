package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// NotificationService defines the methods that the notification handler
// requires from the service layer.
type NotificationService interface {
	ListForUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

// NotificationHandler serves in-app notification endpoints.
type NotificationHandler struct {
	notifications NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(notifications NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// listNotificationsResponse wraps the list endpoint output.
type listNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

// ListNotifications returns a user's notifications, newest first, with the
// unread count.
// GET /api/users/{id}/notifications?limit=50&offset=0
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	opts := parseListOpts(r)
	ns, err := h.notifications.ListForUser(r.Context(), userID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list notifications failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	unread, err := h.notifications.CountUnread(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count unread failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}

	writeJSON(w, http.StatusOK, listNotificationsResponse{
		Notifications: ns,
		Unread:        unread,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
	})
}

// MarkRead marks one of a user's notifications read.
// POST /api/users/{id}/notifications/{notification_id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	notificationID := pathParam(r, "notification_id")
	if userID == "" || notificationID == "" {
		writeError(w, http.StatusBadRequest, "missing user or notification id")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), notificationID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: mark notification read failed",
			slog.String("notification_id", notificationID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
