package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agribid/agribid/internal/domain/bids"
)

// PostgresBidRepository implements bids.Repository using pgx. The ledger is
// append-only: there are no UPDATE or DELETE statements here.
type PostgresBidRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository.
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

// Save appends a bid within the caller's transaction.
func (r *PostgresBidRepository) Save(ctx context.Context, tx pgx.Tx, bid *bids.Bid) error {
	query := `
		INSERT INTO bids (id, listing_id, bidder_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.ListingID,
		bid.BidderID,
		bid.Amount,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetByID retrieves a bid scoped to a listing.
func (r *PostgresBidRepository) GetByID(ctx context.Context, listingID, bidID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids
		WHERE id = $1 AND listing_id = $2
	`
	var bid bids.Bid
	err := r.pool.QueryRow(ctx, query, bidID, listingID).Scan(
		&bid.ID,
		&bid.ListingID,
		&bid.BidderID,
		&bid.Amount,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bids.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return &bid, nil
}

// Highest returns the top bid for a listing: maximum amount, latest
// created_at on ties. (nil, nil) when the listing has no bids.
func (r *PostgresBidRepository) Highest(ctx context.Context, listingID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids
		WHERE listing_id = $1
		ORDER BY amount DESC, created_at DESC
		LIMIT 1
	`
	var bid bids.Bid
	err := r.pool.QueryRow(ctx, query, listingID).Scan(
		&bid.ID,
		&bid.ListingID,
		&bid.BidderID,
		&bid.Amount,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	return &bid, nil
}

// BestFor returns a bidder's top bid on a listing, or (nil, nil).
func (r *PostgresBidRepository) BestFor(ctx context.Context, listingID, bidderID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids
		WHERE listing_id = $1 AND bidder_id = $2
		ORDER BY amount DESC, created_at DESC
		LIMIT 1
	`
	var bid bids.Bid
	err := r.pool.QueryRow(ctx, query, listingID, bidderID).Scan(
		&bid.ID,
		&bid.ListingID,
		&bid.BidderID,
		&bid.Amount,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get best bid: %w", err)
	}
	return &bid, nil
}

// ListByListing retrieves all bids on a listing, highest first.
func (r *PostgresBidRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*bids.Bid, error) {
	query := `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids
		WHERE listing_id = $1
		ORDER BY amount DESC, created_at DESC
	`
	return r.queryBids(ctx, query, listingID)
}

// ListByBidder retrieves all bids a buyer has placed, newest first.
func (r *PostgresBidRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]*bids.Bid, error) {
	query := `
		SELECT id, listing_id, bidder_id, amount, created_at
		FROM bids
		WHERE bidder_id = $1
		ORDER BY created_at DESC
	`
	return r.queryBids(ctx, query, bidderID)
}

func (r *PostgresBidRepository) queryBids(ctx context.Context, query string, args ...any) ([]*bids.Bid, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var result []*bids.Bid
	for rows.Next() {
		var bid bids.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.ListingID,
			&bid.BidderID,
			&bid.Amount,
			&bid.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return result, nil
}
