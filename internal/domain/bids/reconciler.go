package bids

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agribid/agribid/internal/domain/listings"
	"github.com/agribid/agribid/internal/domain/notifications"
)

// Reconciler sweeps for closed listings whose settlement never got recorded
// (the recorder failed after the close committed, or the process died in
// between) and completes them. Settlement creation is idempotent per listing,
// so overlapping sweeps are harmless.
type Reconciler struct {
	listingRepo listings.Repository
	recorder    TransactionRecorder
	notifier    Notifier
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
}

// NewReconciler creates a new settlement reconciler.
func NewReconciler(
	listingRepo listings.Repository,
	recorder TransactionRecorder,
	notifier Notifier,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Reconciler{
		listingRepo: listingRepo,
		recorder:    recorder,
		notifier:    notifier,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("settlement reconciler started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("settlement reconciler stopped")
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Sweep performs one pass: find closed listings with a winner but no
// settlement, and record the missing settlement for each.
func (r *Reconciler) Sweep(ctx context.Context) error {
	unsettled, err := r.listingRepo.ListUnsettled(ctx, r.batchSize)
	if err != nil {
		return err
	}

	for _, listing := range unsettled {
		if listing.WinningBidID == nil || listing.WinningBidderID == nil || listing.WinningBidAmount == nil {
			// Guarded by a DB constraint; skip rather than crash if it leaks.
			r.logger.Error("closed listing missing winner fields", "listing_id", listing.ID)
			continue
		}

		transaction, err := r.recorder.Create(ctx, listing.ID, listing.OwnerID, *listing.WinningBidderID, *listing.WinningBidAmount)
		if err != nil {
			r.logger.Error("failed to reconcile settlement",
				"listing_id", listing.ID, "error", err)
			continue
		}

		r.logger.Info("settlement reconciled",
			"listing_id", listing.ID,
			"transaction_id", transaction.ID)

		payload := notifications.Payload{
			ListingID:     listing.ID,
			BidID:         listing.WinningBidID,
			TransactionID: &transaction.ID,
			Amount:        *listing.WinningBidAmount,
			CropType:      listing.CropType,
			Variety:       listing.Variety,
		}
		r.notifyBestEffort(ctx, *listing.WinningBidderID, listing.OwnerID, notifications.KindWonAuction, payload)
		r.notifyBestEffort(ctx, listing.OwnerID, listing.OwnerID, notifications.KindListingClosed, payload)
	}

	return nil
}

func (r *Reconciler) notifyBestEffort(ctx context.Context, recipientID, actorID uuid.UUID, kind notifications.Kind, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if _, err := r.notifier.Emit(ctx, recipientID, actorID, kind, payload); err != nil {
		r.logger.Warn("failed to emit reconciliation notification",
			"kind", kind, "recipient_id", recipientID, "error", err)
	}
}
