package bids

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agribid/agribid/internal/domain/notifications"
	"github.com/agribid/agribid/internal/domain/transactions"
)

// Repository defines the interface for the append-only bid ledger.
type Repository interface {
	// Save appends a bid within a transaction.
	Save(ctx context.Context, tx pgx.Tx, bid *Bid) error

	// GetByID retrieves a bid scoped to a listing. Returns ErrBidNotFound
	// when the id does not exist or the bid belongs to another listing.
	GetByID(ctx context.Context, listingID, bidID uuid.UUID) (*Bid, error)

	// Highest returns the bid with the maximum amount for a listing,
	// ties broken by latest created_at. Returns (nil, nil) when the
	// listing has no bids. Always computed from the ledger, never cached.
	Highest(ctx context.Context, listingID uuid.UUID) (*Bid, error)

	// BestFor is Highest restricted to one bidder.
	BestFor(ctx context.Context, listingID, bidderID uuid.UUID) (*Bid, error)

	// ListByListing retrieves all bids on a listing, highest first.
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*Bid, error)

	// ListByBidder retrieves all bids a buyer has placed, newest first.
	ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]*Bid, error)
}

// TransactionRecorder creates the settlement record for an accepted bid.
type TransactionRecorder interface {
	Create(ctx context.Context, listingID, sellerID, buyerID uuid.UUID, amount int64) (*transactions.Transaction, error)
}

// Notifier emits best-effort notifications. A failure must never abort the
// auction operation that triggered it.
type Notifier interface {
	Emit(ctx context.Context, recipientID, actorID uuid.UUID, kind notifications.Kind, payload notifications.Payload) (*notifications.Notification, error)
}
