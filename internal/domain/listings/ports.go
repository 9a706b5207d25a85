package listings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for listing persistence.
type Repository interface {
	// Create inserts a new listing.
	Create(ctx context.Context, listing *Listing) error

	// GetByID retrieves a listing. Returns ErrListingNotFound if absent.
	GetByID(ctx context.Context, listingID uuid.UUID) (*Listing, error)

	// GetByIDForUpdate retrieves a listing and locks its row for the
	// duration of the transaction. Used by the auction engine to serialize
	// bid placement against the close transition.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) (*Listing, error)

	// ListOpen retrieves open listings, newest first.
	ListOpen(ctx context.Context, limit, offset int) ([]*Listing, error)

	// ListByOwner retrieves all listings created by a farmer, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Listing, error)

	// Close performs the atomic open -> closed transition: a single
	// conditional update that also sets the winner fields. It affects zero
	// rows when the listing is no longer open, in which case it returns
	// ErrListingClosed. This is the serialization point for concurrent
	// accept attempts.
	Close(ctx context.Context, listingID uuid.UUID, win WinningBid) error

	// ListUnsettled retrieves closed listings that have a winner but no
	// settlement transaction yet. Used by the reconciliation sweep.
	ListUnsettled(ctx context.Context, limit int) ([]*Listing, error)
}
