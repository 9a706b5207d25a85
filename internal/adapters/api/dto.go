package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/agribid/agribid/internal/domain/bids"
	"github.com/agribid/agribid/internal/domain/listings"
	"github.com/agribid/agribid/internal/domain/notifications"
	"github.com/agribid/agribid/internal/domain/pricing"
	"github.com/agribid/agribid/internal/domain/transactions"
)

type createListingRequest struct {
	CropType       string  `json:"crop_type" binding:"required"`
	Variety        string  `json:"variety"`
	QuantityKg     float64 `json:"quantity_kg" binding:"required"`
	MinimumPrice   int64   `json:"minimum_price" binding:"required"`
	SuggestedPrice *int64  `json:"suggested_price"`
	MarketPrice    *int64  `json:"market_price"`
}

type placeBidRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type acceptBidRequest struct {
	BidID uuid.UUID `json:"bid_id" binding:"required"`
}

type suggestPriceRequest struct {
	CropType string  `json:"crop_type" binding:"required"`
	Variety  string  `json:"variety"`
	Region   string  `json:"region"`
	Quantity float64 `json:"quantity"`
	Month    int     `json:"month"`
	Year     int     `json:"year"`
	Season   string  `json:"season"`
}

type listingResponse struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	CropType         string     `json:"crop_type"`
	Variety          string     `json:"variety"`
	QuantityKg       float64    `json:"quantity_kg"`
	MinimumPrice     int64      `json:"minimum_price"`
	SuggestedPrice   *int64     `json:"suggested_price,omitempty"`
	MarketPrice      *int64     `json:"market_price,omitempty"`
	Status           string     `json:"status"`
	WinningBidID     *uuid.UUID `json:"winning_bid_id,omitempty"`
	WinningBidderID  *uuid.UUID `json:"winning_bidder_id,omitempty"`
	WinningBidAmount *int64     `json:"winning_bid_amount,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
}

func toListingResponse(l *listings.Listing) listingResponse {
	return listingResponse{
		ID:               l.ID,
		OwnerID:          l.OwnerID,
		CropType:         l.CropType,
		Variety:          l.Variety,
		QuantityKg:       l.Quantity,
		MinimumPrice:     l.MinimumPrice,
		SuggestedPrice:   l.SuggestedPrice,
		MarketPrice:      l.MarketPrice,
		Status:           string(l.Status),
		WinningBidID:     l.WinningBidID,
		WinningBidderID:  l.WinningBidderID,
		WinningBidAmount: l.WinningBidAmount,
		CreatedAt:        l.CreatedAt,
		ClosedAt:         l.ClosedAt,
	}
}

func toListingResponses(items []*listings.Listing) []listingResponse {
	out := make([]listingResponse, 0, len(items))
	for _, l := range items {
		out = append(out, toListingResponse(l))
	}
	return out
}

type bidResponse struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func toBidResponse(b *bids.Bid) bidResponse {
	return bidResponse{
		ID:        b.ID,
		ListingID: b.ListingID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	}
}

func toBidResponses(items []*bids.Bid) []bidResponse {
	out := make([]bidResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toBidResponse(b))
	}
	return out
}

type bidderBidResponse struct {
	Bid           bidResponse `json:"bid"`
	ListingStatus string      `json:"listing_status"`
	Outcome       string      `json:"outcome"`
}

func toBidderBidResponses(items []*bids.BidderBid) []bidderBidResponse {
	out := make([]bidderBidResponse, 0, len(items))
	for _, item := range items {
		out = append(out, bidderBidResponse{
			Bid:           toBidResponse(item.Bid),
			ListingStatus: string(item.ListingStatus),
			Outcome:       string(item.Outcome),
		})
	}
	return out
}

type acceptBidResponse struct {
	Listing     listingResponse      `json:"listing"`
	Transaction *transactionResponse `json:"transaction,omitempty"`
}

type transactionResponse struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toTransactionResponse(t *transactions.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		ListingID: t.ListingID,
		SellerID:  t.SellerID,
		BuyerID:   t.BuyerID,
		Amount:    t.Amount,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	}
}

func toTransactionResponses(items []*transactions.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

type notificationResponse struct {
	ID          uuid.UUID             `json:"id"`
	RecipientID uuid.UUID             `json:"recipient_id"`
	ActorID     uuid.UUID             `json:"actor_id"`
	Kind        string                `json:"kind"`
	Payload     notifications.Payload `json:"payload"`
	Read        bool                  `json:"read"`
	CreatedAt   time.Time             `json:"created_at"`
}

func toNotificationResponses(items []*notifications.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationResponse{
			ID:          n.ID,
			RecipientID: n.RecipientID,
			ActorID:     n.ActorID,
			Kind:        string(n.Kind),
			Payload:     n.Payload,
			Read:        n.Read,
			CreatedAt:   n.CreatedAt,
		})
	}
	return out
}

type suggestionResponse struct {
	CropType       string  `json:"crop_type"`
	Variety        string  `json:"variety"`
	Region         string  `json:"region"`
	Season         string  `json:"season"`
	SuggestedPrice int64   `json:"suggested_price"`
	MarketPrice    int64   `json:"market_price"`
	Confidence     float64 `json:"confidence"`
}

func toSuggestionResponse(s *pricing.Suggestion) suggestionResponse {
	return suggestionResponse{
		CropType:       s.CropType,
		Variety:        s.Variety,
		Region:         s.Region,
		Season:         string(s.Season),
		SuggestedPrice: s.SuggestedPrice,
		MarketPrice:    s.MarketPrice,
		Confidence:     s.Confidence,
	}
}
