package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// NotificationStore implements domain.NotificationStore using PostgreSQL.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore creates a new NotificationStore backed by the given
// connection pool.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

const notificationCols = `id, recipient_id, type, asset_id, bid_id, amount, read, created_at`

func scanNotification(row pgx.Row) (domain.Notification, error) {
	var n domain.Notification
	var typ string
	err := row.Scan(&n.ID, &n.RecipientID, &typ, &n.AssetID, &n.BidID, &n.Amount, &n.Read, &n.CreatedAt)
	if err != nil {
		return domain.Notification{}, err
	}
	n.Type = domain.NotificationType(typ)
	return n, nil
}

// Create inserts a new notification.
func (s *NotificationStore) Create(ctx context.Context, n domain.Notification) error {
	const query = `
		INSERT INTO notifications (id, recipient_id, type, asset_id, bid_id, amount, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		n.ID, n.RecipientID, string(n.Type), n.AssetID, n.BidID, n.Amount, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create notification %s: %w", n.ID, err)
	}
	return nil
}

// ListByRecipient returns the recipient's notifications, newest first.
func (s *NotificationStore) ListByRecipient(ctx context.Context, recipientID string, opts domain.ListOpts) ([]domain.Notification, error) {
	query := `SELECT ` + notificationCols + ` FROM notifications WHERE recipient_id = $1`
	args := []any{recipientID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.queryNotifications(ctx, query, args...)
}

// MarkRead marks a notification read. The recipient scope is part of the
// predicate so one user cannot acknowledge another user's notification.
func (s *NotificationStore) MarkRead(ctx context.Context, id, recipientID string) error {
	const query = `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND recipient_id = $2`

	tag, err := s.pool.Exec(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("postgres: mark notification %s read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountUnread returns the number of unread notifications for the recipient.
func (s *NotificationStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read`,
		recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count unread notifications for %s: %w", recipientID, err)
	}
	return count, nil
}

// ListCreatedBefore returns notifications created at or before the cutoff,
// oldest first, for the archiver.
func (s *NotificationStore) ListCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationCols + ` FROM notifications
		WHERE created_at <= $1
		ORDER BY created_at ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.queryNotifications(ctx, query, args...)
}

func (s *NotificationStore) queryNotifications(ctx context.Context, query string, args ...any) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list notifications rows: %w", err)
	}
	return notifications, nil
}

var _ domain.NotificationStore = (*NotificationStore)(nil)
