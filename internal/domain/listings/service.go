package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service errors
var (
	ErrListingNotFound     = fmt.Errorf("listing not found")
	ErrListingClosed       = fmt.Errorf("listing is already closed")
	ErrInvalidQuantity     = fmt.Errorf("quantity must be greater than 0")
	ErrInvalidMinimumPrice = fmt.Errorf("minimum price must be greater than 0")
)

// Service implements the core business logic for listings.
type Service struct {
	repo Repository
}

// NewService creates a new listing service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new open listing. Crop type and variety
// are lower-cased so that matching against market prices is case-insensitive.
func (s *Service) Create(ctx context.Context, cmd CreateListingCommand) (*Listing, error) {
	if cmd.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if cmd.MinimumPrice <= 0 {
		return nil, ErrInvalidMinimumPrice
	}

	listing := &Listing{
		ID:             uuid.New(),
		OwnerID:        cmd.OwnerID,
		CropType:       strings.ToLower(strings.TrimSpace(cmd.CropType)),
		Variety:        strings.ToLower(strings.TrimSpace(cmd.Variety)),
		Quantity:       cmd.Quantity,
		MinimumPrice:   cmd.MinimumPrice,
		SuggestedPrice: cmd.SuggestedPrice,
		MarketPrice:    cmd.MarketPrice,
		Status:         StatusOpen,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	return listing, nil
}

// Get retrieves a listing by id.
func (s *Service) Get(ctx context.Context, listingID uuid.UUID) (*Listing, error) {
	return s.repo.GetByID(ctx, listingID)
}

// ListOpen retrieves open listings for browsing.
func (s *Service) ListOpen(ctx context.Context, query ListQuery) ([]*Listing, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	items, err := s.repo.ListOpen(ctx, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list open listings: %w", err)
	}
	return items, nil
}

// ListByOwner retrieves all listings created by a farmer.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, query ListQuery) ([]*Listing, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	items, err := s.repo.ListByOwner(ctx, ownerID, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner listings: %w", err)
	}
	return items, nil
}
