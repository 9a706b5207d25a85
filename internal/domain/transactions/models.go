package transactions

import (
	"time"

	"github.com/google/uuid"
)

// Status is the settlement state. Transactions are created open; the rest of
// the settlement lifecycle lives outside this service.
type Status string

const (
	StatusOpen Status = "open"
)

// Transaction is the settlement record created once a listing closes with a
// winner. Amount is in centavos.
type Transaction struct {
	ID        uuid.UUID `db:"id"`
	ListingID uuid.UUID `db:"listing_id"`
	SellerID  uuid.UUID `db:"seller_id"`
	BuyerID   uuid.UUID `db:"buyer_id"`
	Amount    int64     `db:"amount"`
	Status    Status    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}
