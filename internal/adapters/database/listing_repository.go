package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agribid/agribid/internal/domain/listings"
	pkgdb "github.com/agribid/agribid/pkg/database"
)

const listingColumns = `id, owner_id, crop_type, variety, quantity_kg, minimum_price,
	suggested_price, market_price, status, winning_bid_id, winning_bidder_id,
	winning_bid_amount, created_at, closed_at`

// PostgresListingRepository implements listings.Repository using pgx.
type PostgresListingRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

// NewPostgresListingRepository creates a new PostgreSQL listing repository.
func NewPostgresListingRepository(pool *pgxpool.Pool) *PostgresListingRepository {
	return &PostgresListingRepository{pool: pool}
}

// Create inserts a new listing.
func (r *PostgresListingRepository) Create(ctx context.Context, listing *listings.Listing) error {
	query := `
		INSERT INTO listings (id, owner_id, crop_type, variety, quantity_kg, minimum_price,
			suggested_price, market_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		listing.ID,
		listing.OwnerID,
		listing.CropType,
		listing.Variety,
		listing.Quantity,
		listing.MinimumPrice,
		listing.SuggestedPrice,
		listing.MarketPrice,
		listing.Status,
		listing.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// GetByID retrieves a listing by its ID (non-transactional read).
func (r *PostgresListingRepository) GetByID(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error) {
	return r.getByID(ctx, r.pool, listingID, false)
}

// GetByIDForUpdate retrieves a listing and locks its row for the duration of
// the transaction, serializing bid placement against the close transition.
func (r *PostgresListingRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, listingID uuid.UUID) (*listings.Listing, error) {
	return r.getByID(ctx, tx, listingID, true)
}

func (r *PostgresListingRepository) getByID(ctx context.Context, db pkgdb.DBTX, listingID uuid.UUID, forUpdate bool) (*listings.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	listing, err := scanListing(db.QueryRow(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, listings.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

// ListOpen retrieves open listings, newest first.
func (r *PostgresListingRepository) ListOpen(ctx context.Context, limit, offset int) ([]*listings.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE status = 'open'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryListings(ctx, query, limit, offset)
}

// ListByOwner retrieves all listings created by a farmer, newest first.
func (r *PostgresListingRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*listings.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryListings(ctx, query, ownerID, limit, offset)
}

// Close performs the atomic open -> closed transition. The WHERE clause makes
// it conditional: of any number of concurrent closes, exactly one matches the
// open row and the rest affect zero rows and get ErrListingClosed.
func (r *PostgresListingRepository) Close(ctx context.Context, listingID uuid.UUID, win listings.WinningBid) error {
	query := `
		UPDATE listings
		SET status = 'closed',
			winning_bid_id = $1,
			winning_bidder_id = $2,
			winning_bid_amount = $3,
			closed_at = $4
		WHERE id = $5 AND status = 'open'
	`
	result, err := r.pool.Exec(ctx, query,
		win.BidID,
		win.BidderID,
		win.Amount,
		win.ClosedAt,
		listingID,
	)
	if err != nil {
		return fmt.Errorf("failed to close listing: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either the listing never existed or it is already closed;
		// distinguish for the caller.
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1)`, listingID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check listing existence: %w", err)
		}
		if !exists {
			return listings.ErrListingNotFound
		}
		return listings.ErrListingClosed
	}

	return nil
}

// ListUnsettled retrieves closed listings that have a winner but no
// settlement transaction yet.
func (r *PostgresListingRepository) ListUnsettled(ctx context.Context, limit int) ([]*listings.Listing, error) {
	query := `
		SELECT l.id, l.owner_id, l.crop_type, l.variety, l.quantity_kg, l.minimum_price,
			l.suggested_price, l.market_price, l.status, l.winning_bid_id, l.winning_bidder_id,
			l.winning_bid_amount, l.created_at, l.closed_at
		FROM listings l
		LEFT JOIN transactions t ON t.listing_id = l.id
		WHERE l.status = 'closed' AND t.id IS NULL
		ORDER BY l.closed_at ASC
		LIMIT $1
	`
	return r.queryListings(ctx, query, limit)
}

func (r *PostgresListingRepository) queryListings(ctx context.Context, query string, args ...any) ([]*listings.Listing, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var result []*listings.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		result = append(result, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	return result, nil
}

func scanListing(row pgx.Row) (*listings.Listing, error) {
	var listing listings.Listing
	err := row.Scan(
		&listing.ID,
		&listing.OwnerID,
		&listing.CropType,
		&listing.Variety,
		&listing.Quantity,
		&listing.MinimumPrice,
		&listing.SuggestedPrice,
		&listing.MarketPrice,
		&listing.Status,
		&listing.WinningBidID,
		&listing.WinningBidderID,
		&listing.WinningBidAmount,
		&listing.CreatedAt,
		&listing.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
