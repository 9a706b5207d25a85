package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agribid/agribid/internal/domain/transactions"
)

// PostgresTransactionRepository implements transactions.Repository using pgx.
type PostgresTransactionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTransactionRepository creates a new PostgreSQL transaction repository.
func NewPostgresTransactionRepository(pool *pgxpool.Pool) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{pool: pool}
}

// CreateIfAbsent inserts the settlement for a listing. The unique key on
// listing_id turns a lost race into a no-op, after which the existing row is
// returned, so the accept path and the reconciler can both call this safely.
func (r *PostgresTransactionRepository) CreateIfAbsent(ctx context.Context, t *transactions.Transaction) (*transactions.Transaction, error) {
	query := `
		INSERT INTO transactions (id, listing_id, seller_id, buyer_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (listing_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		t.ID,
		t.ListingID,
		t.SellerID,
		t.BuyerID,
		t.Amount,
		t.Status,
		t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return r.GetByListingID(ctx, t.ListingID)
}

// GetByListingID retrieves the settlement for a listing.
func (r *PostgresTransactionRepository) GetByListingID(ctx context.Context, listingID uuid.UUID) (*transactions.Transaction, error) {
	query := `
		SELECT id, listing_id, seller_id, buyer_id, amount, status, created_at
		FROM transactions
		WHERE listing_id = $1
	`
	var t transactions.Transaction
	err := r.pool.QueryRow(ctx, query, listingID).Scan(
		&t.ID,
		&t.ListingID,
		&t.SellerID,
		&t.BuyerID,
		&t.Amount,
		&t.Status,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transactions.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// ListByUser retrieves transactions where the user is buyer or seller,
// newest first.
func (r *PostgresTransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*transactions.Transaction, error) {
	query := `
		SELECT id, listing_id, seller_id, buyer_id, amount, status, created_at
		FROM transactions
		WHERE seller_id = $1 OR buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var result []*transactions.Transaction
	for rows.Next() {
		var t transactions.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.ListingID,
			&t.SellerID,
			&t.BuyerID,
			&t.Amount,
			&t.Status,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return result, nil
}
