package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agribid/agribid/internal/domain/notifications"
)

// PostgresNotificationRepository implements notifications.Repository using
// pgx. The payload is stored as JSONB.
type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresNotificationRepository creates a new PostgreSQL notification repository.
func NewPostgresNotificationRepository(pool *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

// Save inserts a notification within the caller's transaction.
func (r *PostgresNotificationRepository) Save(ctx context.Context, tx pgx.Tx, n *notifications.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO notifications (id, recipient_id, actor_id, kind, payload, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, query,
		n.ID,
		n.RecipientID,
		n.ActorID,
		n.Kind,
		payload,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByRecipient retrieves a user's notifications, newest first.
func (r *PostgresNotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*notifications.Notification, error) {
	query := `
		SELECT id, recipient_id, actor_id, kind, payload, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var result []*notifications.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return result, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read`

	var count int64
	if err := r.pool.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification as read. The recipient filter keeps a user
// from touching someone else's notifications.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`

	result, err := r.pool.Exec(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of a recipient as read.
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read`

	if _, err := r.pool.Exec(ctx, query, recipientID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func scanNotification(row pgx.Row) (*notifications.Notification, error) {
	var n notifications.Notification
	var payload []byte
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.ActorID,
		&n.Kind,
		&payload,
		&n.Read,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &n.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &n, nil
}
