package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agribid/agribid/internal/domain/bids"
	"github.com/agribid/agribid/internal/domain/listings"
	"github.com/agribid/agribid/internal/domain/notifications"
	"github.com/agribid/agribid/internal/domain/pricing"
	"github.com/agribid/agribid/internal/domain/transactions"
	"github.com/agribid/agribid/pkg/auth"
)

// The handler depends on narrow service interfaces so tests can swap in
// mocks without standing up the full wiring.

type ListingService interface {
	Create(ctx context.Context, cmd listings.CreateListingCommand) (*listings.Listing, error)
	Get(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error)
	ListOpen(ctx context.Context, query listings.ListQuery) ([]*listings.Listing, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, query listings.ListQuery) ([]*listings.Listing, error)
}

type AuctionService interface {
	PlaceBid(ctx context.Context, cmd bids.PlaceBidCommand) (*bids.Bid, error)
	AcceptBid(ctx context.Context, cmd bids.AcceptBidCommand) (*bids.AcceptBidResult, error)
	Highest(ctx context.Context, listingID uuid.UUID) (*bids.Bid, error)
	BestFor(ctx context.Context, listingID, bidderID uuid.UUID) (*bids.Bid, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*bids.Bid, error)
	ListBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*bids.BidderBid, error)
}

type TransactionService interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*transactions.Transaction, error)
}

type NotificationService interface {
	List(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*notifications.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) error
}

type PricingService interface {
	Suggest(ctx context.Context, query pricing.SuggestQuery) (*pricing.Suggestion, error)
	MarketPrices(ctx context.Context) ([]*pricing.MarketPrice, error)
}

// Handler exposes the marketplace over JSON HTTP.
type Handler struct {
	listings      ListingService
	auction       AuctionService
	transactions  TransactionService
	notifications NotificationService
	pricing       PricingService
	logger        *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	listingService ListingService,
	auctionService AuctionService,
	transactionService TransactionService,
	notificationService NotificationService,
	pricingService PricingService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		listings:      listingService,
		auction:       auctionService,
		transactions:  transactionService,
		notifications: notificationService,
		pricing:       pricingService,
		logger:        logger,
	}
}

// CreateListing handles POST /v1/listings
func (h *Handler) CreateListing(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		writeUnauthenticated(c)
		return
	}

	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	listing, err := h.listings.Create(c.Request.Context(), listings.CreateListingCommand{
		OwnerID:        userID,
		CropType:       req.CropType,
		Variety:        req.Variety,
		Quantity:       req.QuantityKg,
		MinimumPrice:   req.MinimumPrice,
		SuggestedPrice: req.SuggestedPrice,
		MarketPrice:    req.MarketPrice,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("listing created",
		"listing_id", listing.ID,
		"owner_id", userID,
		"crop_type", listing.CropType)
	c.JSON(http.StatusCreated, toListingResponse(listing))
}

// ListOpenListings handles GET /v1/listings
func (h *Handler) ListOpenListings(c *gin.Context) {
	items, err := h.listings.ListOpen(c.Request.Context(), paginationQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponses(items))
}

// GetListing handles GET /v1/listings/:id
func (h *Handler) GetListing(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeInvalidParam(c, "listing id")
		return
	}

	listing, err := h.listings.Get(c.Request.Context(), listingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(listing))
}

// ListMyListings handles GET /v1/me/listings
func (h *Handler) ListMyListings(c *gin.Context) {
	userID, _ := auth.UserID(c)
	items, err := h.listings.ListByOwner(c.Request.Context(), userID, paginationQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponses(items))
}

// PlaceBid handles POST /v1/listings/:id/bids
func (h *Handler) PlaceBid(c *gin.Context) {
	userID, _ := auth.UserID(c)
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeInvalidParam(c, "listing id")
		return
	}

	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	bid, err := h.auction.PlaceBid(c.Request.Context(), bids.PlaceBidCommand{
		ListingID: listingID,
		BidderID:  userID,
		Amount:    req.Amount,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	h.logger.Info("bid placed",
		"bid_id", bid.ID,
		"listing_id", listingID,
		"bidder_id", userID,
		"amount", bid.Amount)
	c.JSON(http.StatusCreated, toBidResponse(bid))
}

// ListBids handles GET /v1/listings/:id/bids
func (h *Handler) ListBids(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeInvalidParam(c, "listing id")
		return
	}

	items, err := h.auction.ListByListing(c.Request.Context(), listingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBidResponses(items))
}

// GetHighestBid handles GET /v1/listings/:id/bids/highest
func (h *Handler) GetHighestBid(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeInvalidParam(c, "listing id")
		return
	}

	bid, err := h.auction.Highest(c.Request.Context(), listingID)
	if err != nil {
		writeError(c, err)
		return
	}
	if bid == nil {
		writeError(c, bids.ErrBidNotFound)
		return
	}
	c.JSON(http.StatusOK, toBidResponse(bid))
}

// GetMyBid handles GET /v1/listings/:id/bids/mine
func (h *Handler) GetMyBid(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		writeUnauthenticated(c)
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeInvalidParam(c, "listing id")
		return
	}

	bid, err := h.auction.BestFor(c.Request.Context(), listingID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if bid == nil {
		writeError(c, bids.ErrBidNotFound)
		return
	}
	c.JSON(http.StatusOK, toBidResponse(bid))
}

// AcceptBid handles POST /v1/listings/:id/accept
func (h *Handler) AcceptBid(c *gin.Context) {
	userID, _ := auth.UserID(c)
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeInvalidParam(c, "listing id")
		return
	}

	var req acceptBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	result, err := h.auction.AcceptBid(c.Request.Context(), bids.AcceptBidCommand{
		ListingID: listingID,
		BidID:     req.BidID,
		ActorID:   userID,
	})
	if err != nil {
		// The close may have committed even though settlement recording
		// failed; in that case the accept stands and the reconciler will
		// complete it.
		if result == nil || result.Listing == nil {
			writeError(c, err)
			return
		}
		h.logger.Error("accept committed without settlement",
			"listing_id", listingID, "error", err)
	}

	resp := acceptBidResponse{Listing: toListingResponse(result.Listing)}
	if result.Transaction != nil {
		tr := toTransactionResponse(result.Transaction)
		resp.Transaction = &tr
	}

	h.logger.Info("bid accepted",
		"listing_id", listingID,
		"bid_id", req.BidID,
		"owner_id", userID)
	c.JSON(http.StatusOK, resp)
}

// ListMyBids handles GET /v1/me/bids
func (h *Handler) ListMyBids(c *gin.Context) {
	userID, _ := auth.UserID(c)
	items, err := h.auction.ListBidderBids(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBidderBidResponses(items))
}

// ListMyTransactions handles GET /v1/me/transactions
func (h *Handler) ListMyTransactions(c *gin.Context) {
	userID, _ := auth.UserID(c)
	limit, offset := limitOffset(c)
	items, err := h.transactions.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransactionResponses(items))
}

// ListMyNotifications handles GET /v1/me/notifications
func (h *Handler) ListMyNotifications(c *gin.Context) {
	userID, _ := auth.UserID(c)
	limit, offset := limitOffset(c)
	items, err := h.notifications.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotificationResponses(items))
}

// CountUnreadNotifications handles GET /v1/me/notifications/unread
func (h *Handler) CountUnreadNotifications(c *gin.Context) {
	userID, _ := auth.UserID(c)
	count, err := h.notifications.CountUnread(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkNotificationRead handles POST /v1/me/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, _ := auth.UserID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeInvalidParam(c, "notification id")
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), id, userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /v1/me/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	userID, _ := auth.UserID(c)
	if err := h.notifications.MarkAllRead(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SuggestPrice handles POST /v1/prices/suggest
func (h *Handler) SuggestPrice(c *gin.Context) {
	var req suggestPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	suggestion, err := h.pricing.Suggest(c.Request.Context(), pricing.SuggestQuery{
		CropType: req.CropType,
		Variety:  req.Variety,
		Region:   req.Region,
		Quantity: req.Quantity,
		Month:    time.Month(req.Month),
		Year:     req.Year,
		Season:   pricing.Season(req.Season),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSuggestionResponse(suggestion))
}

// GetMarketPrices handles GET /v1/prices/market
func (h *Handler) GetMarketPrices(c *gin.Context) {
	prices, err := h.pricing.MarketPrices(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

func paginationQuery(c *gin.Context) listings.ListQuery {
	limit, offset := limitOffset(c)
	return listings.ListQuery{Limit: limit, Offset: offset}
}

func limitOffset(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
