package listings

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a listing. The transition is one-way:
// open -> closed.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Listing is a farmer's offer of a crop quantity for sale via auction.
// Monetary amounts are integer centavos.
type Listing struct {
	ID           uuid.UUID `db:"id"`
	OwnerID      uuid.UUID `db:"owner_id"`
	CropType     string    `db:"crop_type"`
	Variety      string    `db:"variety"`
	Quantity     float64   `db:"quantity_kg"`
	MinimumPrice int64     `db:"minimum_price"`

	// Advisory values from the price-suggestion service. Never validated
	// against by the auction engine.
	SuggestedPrice *int64 `db:"suggested_price"`
	MarketPrice    *int64 `db:"market_price"`

	Status Status `db:"status"`

	// Winner fields are set exactly once, atomically with the close
	// transition, and are nil while the listing is open.
	WinningBidID     *uuid.UUID `db:"winning_bid_id"`
	WinningBidderID  *uuid.UUID `db:"winning_bidder_id"`
	WinningBidAmount *int64     `db:"winning_bid_amount"`

	CreatedAt time.Time  `db:"created_at"`
	ClosedAt  *time.Time `db:"closed_at"`
}

// IsOpen reports whether the listing still accepts bids.
func (l *Listing) IsOpen() bool {
	return l.Status == StatusOpen
}

// IsOwnedBy reports whether the given user created this listing.
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

// WinningBid carries the winner selection applied by the atomic close.
type WinningBid struct {
	BidID    uuid.UUID
	BidderID uuid.UUID
	Amount   int64
	ClosedAt time.Time
}

// CreateListingCommand represents the command to create a new listing.
type CreateListingCommand struct {
	OwnerID        uuid.UUID
	CropType       string
	Variety        string
	Quantity       float64
	MinimumPrice   int64
	SuggestedPrice *int64
	MarketPrice    *int64
}

// ListQuery represents pagination parameters for listing queries.
type ListQuery struct {
	Limit  int
	Offset int
}
