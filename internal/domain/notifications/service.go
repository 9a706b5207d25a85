package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agribid/agribid/pkg/database"
	"github.com/agribid/agribid/pkg/events"
)

// Service errors
var (
	ErrNotificationNotFound = fmt.Errorf("notification not found")
	ErrInvalidKind          = fmt.Errorf("unknown notification kind")
)

// deliveryEvent is the JSON body published to the broker for asynchronous
// delivery (push, e-mail, websocket fan-out — whatever the consumer does).
type deliveryEvent struct {
	NotificationID uuid.UUID `json:"notification_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	ActorID        uuid.UUID `json:"actor_id"`
	Kind           Kind      `json:"kind"`
	Payload        Payload   `json:"payload"`
	CreatedAt      time.Time `json:"created_at"`
}

// Service creates notification records and stages their delivery through the
// transactional outbox, so a record and its broker event commit together.
type Service struct {
	txManager  database.TransactionManager
	repo       Repository
	outboxRepo OutboxRepository
}

// NewService creates a new notification service.
func NewService(txManager database.TransactionManager, repo Repository, outboxRepo OutboxRepository) *Service {
	return &Service{
		txManager:  txManager,
		repo:       repo,
		outboxRepo: outboxRepo,
	}
}

// Emit records a notification and stages a delivery event in one transaction.
// Callers on the auction path treat a failure here as best-effort: they log
// it and carry on.
func (s *Service) Emit(ctx context.Context, recipientID, actorID uuid.UUID, kind Kind, payload Payload) (*Notification, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}

	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		ActorID:     actorID,
		Kind:        kind,
		Payload:     payload,
		Read:        false,
		CreatedAt:   time.Now(),
	}

	body, err := json.Marshal(deliveryEvent{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		ActorID:        n.ActorID,
		Kind:           n.Kind,
		Payload:        n.Payload,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delivery event: %w", err)
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if saveErr := s.repo.Save(ctx, tx, n); saveErr != nil {
		return nil, fmt.Errorf("failed to save notification: %w", saveErr)
	}

	event := &events.OutboxEvent{
		ID:        uuid.New(),
		EventType: "notification." + string(kind),
		Payload:   body,
		Status:    events.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	if saveErr := s.outboxRepo.SaveEvent(ctx, tx, event); saveErr != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", saveErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	return n, nil
}

// List retrieves a user's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByRecipient(ctx, recipientID, limit, offset)
}

// CountUnread returns the number of unread notifications for a user.
func (s *Service) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

// MarkRead marks a single notification as read.
func (s *Service) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, recipientID)
}

// MarkAllRead marks all of a user's notifications as read.
func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, recipientID)
}
