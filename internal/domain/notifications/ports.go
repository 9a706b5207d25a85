package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agribid/agribid/pkg/events"
)

// Repository defines the interface for notification persistence.
type Repository interface {
	// Save inserts a notification within a transaction.
	Save(ctx context.Context, tx pgx.Tx, n *Notification) error

	// ListByRecipient retrieves a user's notifications, newest first.
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*Notification, error)

	// CountUnread returns the number of unread notifications for a user.
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)

	// MarkRead marks one notification as read. Returns
	// ErrNotificationNotFound when the id does not exist or belongs to a
	// different recipient.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error

	// MarkAllRead marks every unread notification of a recipient as read.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
}

// OutboxRepository is the slice of the shared outbox needed to stage a
// notification event for asynchronous delivery.
type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}
