package bids

import (
	"time"

	"github.com/google/uuid"

	"github.com/agribid/agribid/internal/domain/listings"
	"github.com/agribid/agribid/internal/domain/transactions"
)

// Bid is a buyer's offered price on a listing. Bids are append-only: once
// written they are never mutated or deleted. Amount is in centavos.
type Bid struct {
	ID        uuid.UUID `db:"id"`
	ListingID uuid.UUID `db:"listing_id"`
	BidderID  uuid.UUID `db:"bidder_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// PlaceBidCommand represents the command to place a bid.
type PlaceBidCommand struct {
	ListingID uuid.UUID
	BidderID  uuid.UUID
	Amount    int64
}

// AcceptBidCommand represents the owner's selection of a winning bid.
type AcceptBidCommand struct {
	ListingID uuid.UUID
	BidID     uuid.UUID
	ActorID   uuid.UUID
}

// AcceptBidResult is what a successful accept returns: the closed listing
// and the settlement created for it. Transaction is nil when settlement
// creation failed after the close committed; the reconciler completes it.
type AcceptBidResult struct {
	Listing     *listings.Listing
	Transaction *transactions.Transaction
}

// Outcome is the derived status of a buyer's bid, recomputed from the
// listing state and the ledger on every query (never stored).
type Outcome string

const (
	// OutcomeWon: the listing closed and this bid was selected.
	OutcomeWon Outcome = "won"
	// OutcomeLost: the listing closed and another bid was selected.
	OutcomeLost Outcome = "lost"
	// OutcomeLeading: the listing is open and this is the current highest bid.
	OutcomeLeading Outcome = "leading"
	// OutcomeActive: the listing is open and a higher bid exists.
	OutcomeActive Outcome = "active"
)

// BidderBid pairs a bid with its derived outcome for the buyer's "my bids"
// view.
type BidderBid struct {
	Bid           *Bid
	ListingStatus listings.Status
	Outcome       Outcome
}
