package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service errors
var (
	ErrTransactionNotFound = fmt.Errorf("transaction not found")
)

// Recorder creates settlement records. Creation is idempotent per listing so
// the reconciliation sweep can safely re-run it.
type Recorder struct {
	repo Repository
}

// NewRecorder creates a new transaction recorder.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Create records the settlement for a closed listing.
func (r *Recorder) Create(ctx context.Context, listingID, sellerID, buyerID uuid.UUID, amount int64) (*Transaction, error) {
	t := &Transaction{
		ID:        uuid.New(),
		ListingID: listingID,
		SellerID:  sellerID,
		BuyerID:   buyerID,
		Amount:    amount,
		Status:    StatusOpen,
		CreatedAt: time.Now(),
	}

	created, err := r.repo.CreateIfAbsent(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, nil
}

// ListByUser retrieves a user's transactions, newest first.
func (r *Recorder) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.repo.ListByUser(ctx, userID, limit, offset)
}
