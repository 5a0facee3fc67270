package service

import (
	"context"
	"fmt"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// NotificationService exposes the in-app notification reads and the single
// permitted mutation, marking a notification read.
type NotificationService struct {
	notifications domain.NotificationStore
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(notifications domain.NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Notification, error) {
	ns, err := s.notifications.ListByRecipient(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("notification_service: list for user %q: %w", userID, err)
	}
	return ns, nil
}

// MarkRead marks one of the user's notifications read. It returns
// domain.ErrNotFound when the notification does not exist or belongs to a
// different user; the two cases are deliberately indistinguishable.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.notifications.MarkRead(ctx, id, userID); err != nil {
		return fmt.Errorf("notification_service: mark read %q: %w", id, err)
	}
	return nil
}

// CountUnread returns the number of unread notifications for the user.
func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("notification_service: count unread for %q: %w", userID, err)
	}
	return count, nil
}
