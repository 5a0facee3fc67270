package memory

import (
	"context"
	"sync"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// NotificationStore is a concurrency-safe in-memory implementation of
// domain.NotificationStore.
type NotificationStore struct {
	mu          sync.RWMutex
	byID        map[string]domain.Notification
	byRecipient map[string][]string // recipient -> notification IDs, append order
}

// NewNotificationStore creates an empty in-memory notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		byID:        make(map[string]domain.Notification),
		byRecipient: make(map[string][]string),
	}
}

// Create stores a notification.
func (s *NotificationStore) Create(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[n.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.byID[n.ID] = n
	s.byRecipient[n.RecipientID] = append(s.byRecipient[n.RecipientID], n.ID)
	return nil
}

// ListByRecipient returns a recipient's notifications, newest first.
func (s *NotificationStore) ListByRecipient(_ context.Context, recipientID string, opts domain.ListOpts) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRecipient[recipientID]
	out := make([]domain.Notification, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		n := s.byID[ids[i]]
		if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && n.CreatedAt.After(*opts.Until) {
			continue
		}
		out = append(out, n)
	}
	return paginate(out, opts), nil
}

// MarkRead flags a notification as read. The recipient must match.
func (s *NotificationStore) MarkRead(_ context.Context, id, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.RecipientID != recipientID {
		return domain.ErrNotFound
	}
	n.Read = true
	s.byID[id] = n
	return nil
}

// CountUnread returns the number of unread notifications for a recipient.
func (s *NotificationStore) CountUnread(_ context.Context, recipientID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, id := range s.byRecipient[recipientID] {
		if !s.byID[id].Read {
			count++
		}
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.NotificationStore = (*NotificationStore)(nil)
