package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationService exposes the durable notification feed that backs the
// per-role bell icon. Rows are written by the order and reporting services
// inside their own transactions; this service only reads and acknowledges.
type NotificationService interface {
	// ListUnread returns the newest unread notifications for a role, capped
	// at 20 so a long-idle station does not get flooded on reconnect.
	ListUnread(ctx context.Context, role string) ([]Notification, error)
	// MarkRead is idempotent; acknowledging an already-read or missing
	// notification is not an error.
	MarkRead(ctx context.Context, notificationID int) error
}

type notificationService struct {
	pool *pgxpool.Pool
}

func NewNotificationService(pool *pgxpool.Pool) NotificationService {
	return &notificationService{pool: pool}
}

func (s *notificationService) ListUnread(ctx context.Context, role string) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, recipient_role, message, order_id, read, created_at
		FROM notifications
		WHERE recipient_role = $1 AND NOT read
		ORDER BY created_at DESC
		LIMIT 20
	`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications for role %s: %w", role, err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.RecipientRole, &n.Message, &n.OrderID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID int) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE notifications SET read = true WHERE id = $1",
		notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", notificationID, err)
	}
	return nil
}
