package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	adapterdb "github.com/agribid/agribid/internal/adapters/database"
	"github.com/agribid/agribid/internal/adapters/api"
	adapterpricing "github.com/agribid/agribid/internal/adapters/pricing"
	"github.com/agribid/agribid/internal/config"
	"github.com/agribid/agribid/internal/domain/bids"
	"github.com/agribid/agribid/internal/domain/listings"
	"github.com/agribid/agribid/internal/domain/notifications"
	"github.com/agribid/agribid/internal/domain/pricing"
	"github.com/agribid/agribid/internal/domain/transactions"
	"github.com/agribid/agribid/pkg/auth"
	"github.com/agribid/agribid/pkg/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("api exited", "error", err)
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

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info("redis connected")

	// RabbitMQ is only consumed by the relay in the worker binary; the api
	// dials it before bringing anything else up so a misconfigured broker URL
	// fails the deploy immediately instead of surfacing in the worker later.
	mq, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer mq.Close()
	logger.Info("rabbitmq connected")

	publicKeyPEM, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return err
	}
	signer, err := auth.NewSignerFromPublicKey(publicKeyPEM, cfg.JWTIssuer)
	if err != nil {
		return err
	}

	txManager := database.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	listingRepo := adapterdb.NewPostgresListingRepository(pool)
	bidRepo := adapterdb.NewPostgresBidRepository(pool)
	transactionRepo := adapterdb.NewPostgresTransactionRepository(pool)
	notificationRepo := adapterdb.NewPostgresNotificationRepository(pool)
	outboxRepo := adapterdb.NewPostgresOutboxRepository(pool)

	listingService := listings.NewService(listingRepo)
	recorder := transactions.NewRecorder(transactionRepo)
	notificationService := notifications.NewService(txManager, notificationRepo, outboxRepo)
	auctionService := bids.NewAuctionService(txManager, listingRepo, bidRepo, recorder, notificationService, logger)

	predictor := adapterpricing.NewHTTPPredictor(cfg.PredictorURL, cfg.PredictorTimeout)
	priceCache := adapterpricing.NewRedisCache(rdb, cfg.PriceCacheTTL)
	pricingService := pricing.NewService(predictor, priceCache, logger)

	handler := api.NewHandler(listingService, auctionService, recorder, notificationService, pricingService, logger)
	router := api.NewRouter(handler, signer, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("api listening", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("api stopped")
	return nil
}
