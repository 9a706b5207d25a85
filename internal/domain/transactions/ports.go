package transactions

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for transaction persistence.
type Repository interface {
	// CreateIfAbsent inserts the settlement for a listing, or returns the
	// existing one if a concurrent writer (or an earlier attempt) got
	// there first. Listings carry at most one settlement.
	CreateIfAbsent(ctx context.Context, t *Transaction) (*Transaction, error)

	// GetByListingID retrieves the settlement for a listing. Returns
	// ErrTransactionNotFound if the listing has none.
	GetByListingID(ctx context.Context, listingID uuid.UUID) (*Transaction, error)

	// ListByUser retrieves transactions where the user is buyer or seller,
	// newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, error)
}
