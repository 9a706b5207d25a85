package bids

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agribid/agribid/internal/domain/listings"
	"github.com/agribid/agribid/internal/domain/notifications"
	"github.com/agribid/agribid/pkg/database"
)

// Service errors
var (
	ErrBidNotFound     = fmt.Errorf("bid not found")
	ErrInvalidAmount   = fmt.Errorf("bid amount must be greater than the minimum price")
	ErrSelfBid         = fmt.Errorf("cannot bid on your own listing")
	ErrNotListingOwner = fmt.Errorf("only the listing owner can accept a bid")
)

// AuctionService implements the sealed-bid auction rules: bid placement
// against open listings and the owner's accept that closes the auction.
type AuctionService struct {
	txManager   database.TransactionManager
	listingRepo listings.Repository
	bidRepo     Repository
	recorder    TransactionRecorder
	notifier    Notifier
	logger      *slog.Logger
}

// NewAuctionService creates a new auction service.
func NewAuctionService(
	txManager database.TransactionManager,
	listingRepo listings.Repository,
	bidRepo Repository,
	recorder TransactionRecorder,
	notifier Notifier,
	logger *slog.Logger,
) *AuctionService {
	return &AuctionService{
		txManager:   txManager,
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		recorder:    recorder,
		notifier:    notifier,
		logger:      logger,
	}
}

// PlaceBid appends a bid to an open listing. The listing row is locked for
// the duration of the write so a concurrent accept cannot close the listing
// between the open check and the insert.
//
// The only price rule is amount > minimum price. A bid below the current
// highest is accepted (the owner may value other factors), but logged.
func (s *AuctionService) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	if cmd.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	listing, err := s.listingRepo.GetByIDForUpdate(ctx, tx, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsOpen() {
		return nil, listings.ErrListingClosed
	}
	if listing.IsOwnedBy(cmd.BidderID) {
		return nil, ErrSelfBid
	}
	if cmd.Amount <= listing.MinimumPrice {
		return nil, ErrInvalidAmount
	}

	bid := &Bid{
		ID:        uuid.New(),
		ListingID: cmd.ListingID,
		BidderID:  cmd.BidderID,
		Amount:    cmd.Amount,
		CreatedAt: time.Now(),
	}

	if err := s.bidRepo.Save(ctx, tx, bid); err != nil {
		return nil, fmt.Errorf("failed to save bid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	highest, err := s.bidRepo.Highest(ctx, cmd.ListingID)
	if err != nil {
		s.logger.Warn("failed to compute highest bid after placement",
			"listing_id", cmd.ListingID, "error", err)
	} else if highest != nil && highest.ID != bid.ID && bid.Amount < highest.Amount {
		s.logger.Warn("bid placed below current highest",
			"listing_id", cmd.ListingID,
			"bid_id", bid.ID,
			"amount", bid.Amount,
			"highest_amount", highest.Amount)
	}

	s.notify(ctx, listing.OwnerID, cmd.BidderID, notifications.KindNewBid, notifications.Payload{
		ListingID: listing.ID,
		BidID:     &bid.ID,
		Amount:    bid.Amount,
		CropType:  listing.CropType,
		Variety:   listing.Variety,
	})

	return bid, nil
}

// AcceptBid lets the listing owner select a winning bid. Any bid on the
// listing may be chosen, not only the highest. The conditional close is the
// serialization point: of any number of concurrent accepts, exactly one
// succeeds and the rest observe ErrListingClosed.
//
// Once the close has committed the auction outcome is final. A failure in
// settlement recording after that point is returned to the caller, but the
// reconciliation sweep will complete the settlement; retrying the accept is
// not the fix and will report the listing as closed.
func (s *AuctionService) AcceptBid(ctx context.Context, cmd AcceptBidCommand) (*AcceptBidResult, error) {
	listing, err := s.listingRepo.GetByID(ctx, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsOwnedBy(cmd.ActorID) {
		return nil, ErrNotListingOwner
	}
	if !listing.IsOpen() {
		return nil, listings.ErrListingClosed
	}

	// GetByID is scoped to the listing, so a bid that belongs to another
	// listing surfaces here as ErrBidNotFound.
	bid, err := s.bidRepo.GetByID(ctx, cmd.ListingID, cmd.BidID)
	if err != nil {
		return nil, err
	}

	win := listings.WinningBid{
		BidID:    bid.ID,
		BidderID: bid.BidderID,
		Amount:   bid.Amount,
		ClosedAt: time.Now(),
	}
	if err := s.listingRepo.Close(ctx, cmd.ListingID, win); err != nil {
		return nil, err
	}

	closed, err := s.listingRepo.GetByID(ctx, cmd.ListingID)
	if err != nil {
		// The close committed; fall back to patching the copy we have.
		s.logger.Warn("failed to reload listing after close",
			"listing_id", cmd.ListingID, "error", err)
		closed = listing
		closed.Status = listings.StatusClosed
		closed.WinningBidID = &win.BidID
		closed.WinningBidderID = &win.BidderID
		closed.WinningBidAmount = &win.Amount
		closed.ClosedAt = &win.ClosedAt
	}

	result := &AcceptBidResult{Listing: closed}

	transaction, err := s.recorder.Create(ctx, listing.ID, listing.OwnerID, bid.BidderID, bid.Amount)
	if err != nil {
		s.logger.Error("settlement recording failed after close, leaving to reconciler",
			"listing_id", listing.ID, "bid_id", bid.ID, "error", err)
		return result, fmt.Errorf("listing closed but settlement recording failed: %w", err)
	}
	result.Transaction = transaction

	payload := notifications.Payload{
		ListingID:     listing.ID,
		BidID:         &bid.ID,
		TransactionID: &transaction.ID,
		Amount:        bid.Amount,
		CropType:      listing.CropType,
		Variety:       listing.Variety,
	}
	s.notify(ctx, bid.BidderID, cmd.ActorID, notifications.KindWonAuction, payload)
	s.notify(ctx, listing.OwnerID, cmd.ActorID, notifications.KindListingClosed, payload)

	return result, nil
}

// Get retrieves a single bid on a listing.
func (s *AuctionService) Get(ctx context.Context, listingID, bidID uuid.UUID) (*Bid, error) {
	return s.bidRepo.GetByID(ctx, listingID, bidID)
}

// Highest returns the current highest bid on a listing, or nil when the
// listing has no bids.
func (s *AuctionService) Highest(ctx context.Context, listingID uuid.UUID) (*Bid, error) {
	return s.bidRepo.Highest(ctx, listingID)
}

// ListByListing retrieves all bids on a listing, highest first.
func (s *AuctionService) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*Bid, error) {
	return s.bidRepo.ListByListing(ctx, listingID)
}

// BestFor retrieves a bidder's top bid on a listing, or (nil, nil) when the
// bidder has not bid on it.
func (s *AuctionService) BestFor(ctx context.Context, listingID, bidderID uuid.UUID) (*Bid, error) {
	return s.bidRepo.BestFor(ctx, listingID, bidderID)
}

// ListBidderBids retrieves a buyer's bids with their derived outcomes. The
// outcome is recomputed on every call from the listing state and the ledger.
func (s *AuctionService) ListBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*BidderBid, error) {
	placed, err := s.bidRepo.ListByBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}

	// Cache per-listing state; a buyer often has several bids on one listing.
	listingByID := make(map[uuid.UUID]*listings.Listing)
	highestByID := make(map[uuid.UUID]*Bid)

	out := make([]*BidderBid, 0, len(placed))
	for _, bid := range placed {
		listing, ok := listingByID[bid.ListingID]
		if !ok {
			listing, err = s.listingRepo.GetByID(ctx, bid.ListingID)
			if err != nil {
				return nil, fmt.Errorf("failed to load listing %s: %w", bid.ListingID, err)
			}
			listingByID[bid.ListingID] = listing
		}

		entry := &BidderBid{Bid: bid, ListingStatus: listing.Status}
		if listing.Status == listings.StatusClosed {
			if listing.WinningBidID != nil && *listing.WinningBidID == bid.ID {
				entry.Outcome = OutcomeWon
			} else {
				entry.Outcome = OutcomeLost
			}
		} else {
			highest, ok := highestByID[bid.ListingID]
			if !ok {
				highest, err = s.bidRepo.Highest(ctx, bid.ListingID)
				if err != nil {
					return nil, fmt.Errorf("failed to compute highest bid: %w", err)
				}
				highestByID[bid.ListingID] = highest
			}
			if highest != nil && highest.ID == bid.ID {
				entry.Outcome = OutcomeLeading
			} else {
				entry.Outcome = OutcomeActive
			}
		}
		out = append(out, entry)
	}

	return out, nil
}

// notify emits a best-effort notification. Failures are logged and swallowed.
func (s *AuctionService) notify(ctx context.Context, recipientID, actorID uuid.UUID, kind notifications.Kind, payload notifications.Payload) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Emit(ctx, recipientID, actorID, kind, payload); err != nil {
		s.logger.Warn("failed to emit notification",
			"kind", kind,
			"recipient_id", recipientID,
			"listing_id", payload.ListingID,
			"error", err)
	}
}
