package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies what happened.
type Kind string

const (
	KindNewBid        Kind = "new_bid"
	KindWonAuction    Kind = "won_auction"
	KindListingClosed Kind = "listing_closed"
)

// IsValid checks if the kind is one of the known values.
func (k Kind) IsValid() bool {
	switch k {
	case KindNewBid, KindWonAuction, KindListingClosed:
		return true
	default:
		return false
	}
}

// Payload carries the references a client needs to render the notification.
// Amount is in centavos.
type Payload struct {
	ListingID     uuid.UUID  `json:"listing_id"`
	BidID         *uuid.UUID `json:"bid_id,omitempty"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Amount        int64      `json:"amount"`
	CropType      string     `json:"crop_type,omitempty"`
	Variety       string     `json:"variety,omitempty"`
}

// Notification is an asynchronous, best-effort informational event for a user.
type Notification struct {
	ID          uuid.UUID `db:"id"`
	RecipientID uuid.UUID `db:"recipient_id"`
	ActorID     uuid.UUID `db:"actor_id"`
	Kind        Kind      `db:"kind"`
	Payload     Payload   `db:"payload"`
	Read        bool      `db:"read"`
	CreatedAt   time.Time `db:"created_at"`
}
