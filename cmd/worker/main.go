package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	adapterdb "github.com/agribid/agribid/internal/adapters/database"
	"github.com/agribid/agribid/internal/config"
	"github.com/agribid/agribid/internal/domain/bids"
	"github.com/agribid/agribid/internal/domain/notifications"
	"github.com/agribid/agribid/internal/domain/transactions"
	"github.com/agribid/agribid/pkg/database"
	"github.com/agribid/agribid/pkg/events"
)

// The worker runs the two background loops: the outbox relay that ships
// staged notification events to RabbitMQ, and the settlement reconciler that
// repairs closed listings whose transaction never got recorded.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("postgres connected")

	mq, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer mq.Close()
	logger.Info("rabbitmq connected")

	publisher, err := events.NewRabbitMQPublisher(mq, cfg.EventsExchange)
	if err != nil {
		return err
	}
	defer publisher.Close()

	txManager := database.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	listingRepo := adapterdb.NewPostgresListingRepository(pool)
	transactionRepo := adapterdb.NewPostgresTransactionRepository(pool)
	notificationRepo := adapterdb.NewPostgresNotificationRepository(pool)
	outboxRepo := adapterdb.NewPostgresOutboxRepository(pool)

	recorder := transactions.NewRecorder(transactionRepo)
	notificationService := notifications.NewService(txManager, notificationRepo, outboxRepo)

	relay := events.NewOutboxRelay(
		outboxRepo,
		publisher,
		txManager,
		cfg.RelayBatchSize,
		cfg.RelayInterval,
		cfg.EventsExchange,
		logger,
	)

	reconciler := bids.NewReconciler(
		listingRepo,
		recorder,
		notificationService,
		logger,
		cfg.ReconcileInterval,
		cfg.ReconcileBatchSize,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting outbox relay")
		return relay.Run(gctx)
	})
	g.Go(func() error {
		reconciler.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("worker stopped")
	return nil
}
