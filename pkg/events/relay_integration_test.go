//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	adapterdb "github.com/agribid/agribid/internal/adapters/database"
	"github.com/agribid/agribid/internal/domain/notifications"
	pkgdb "github.com/agribid/agribid/pkg/database"
	pkgevents "github.com/agribid/agribid/pkg/events"
	"github.com/agribid/agribid/pkg/testhelpers"
)

const testExchange = "agribid.events"

// TestRelayDeliversNotificationEvents drives the full path: a notification
// emit stages an outbox row, the relay publishes it to RabbitMQ, and a bound
// consumer receives the delivery event.
func TestRelayDeliversNotificationEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
		rabbitmq.WithAdminPassword("password"),
	)
	require.NoError(t, err)
	defer func() {
		if termErr := rabbitmqContainer.Terminate(ctx); termErr != nil {
			t.Fatalf("failed to terminate container: %s", termErr)
		}
	}()

	amqpURL, err := rabbitmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	testDB := testhelpers.NewTestDatabase(t, "../../migrations")
	defer testDB.Close()

	pubConn, err := amqp091.Dial(amqpURL)
	require.NoError(t, err)
	defer pubConn.Close()

	publisher, err := pkgevents.NewRabbitMQPublisher(pubConn, testExchange)
	require.NoError(t, err)
	defer publisher.Close()

	txManager := pkgdb.NewPostgresTransactionManager(testDB.Pool, time.Second)
	outboxRepo := adapterdb.NewPostgresOutboxRepository(testDB.Pool)
	notificationRepo := adapterdb.NewPostgresNotificationRepository(testDB.Pool)
	notificationService := notifications.NewService(txManager, notificationRepo, outboxRepo)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	relay := pkgevents.NewOutboxRelay(
		outboxRepo,
		publisher,
		txManager,
		10,
		50*time.Millisecond,
		testExchange,
		logger,
	)

	// Separate connection for the verifying consumer.
	conn, err := amqp091.Dial(amqpURL)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	err = ch.ExchangeDeclare(testExchange, "topic", true, false, false, false, nil)
	require.NoError(t, err)

	q, err := ch.QueueDeclare("", false, false, true, false, nil)
	require.NoError(t, err)

	err = ch.QueueBind(q.Name, "notification.*", testExchange, false, nil)
	require.NoError(t, err)

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	require.NoError(t, err)

	recipientID := uuid.New()
	actorID := uuid.New()
	listingID := uuid.New()

	created, err := notificationService.Emit(ctx, recipientID, actorID,
		notifications.KindNewBid, notifications.Payload{
			ListingID: listingID,
			Amount:    5000,
			CropType:  "rice",
		})
	require.NoError(t, err)

	relayCtx, cancelRelay := context.WithCancel(ctx)
	defer cancelRelay()
	go func() {
		_ = relay.Run(relayCtx)
	}()

	select {
	case msg := <-msgs:
		assert.Equal(t, "notification.new_bid", msg.RoutingKey)
		assert.Equal(t, "application/json", msg.ContentType)

		var event struct {
			NotificationID uuid.UUID             `json:"notification_id"`
			RecipientID    uuid.UUID             `json:"recipient_id"`
			Kind           string                `json:"kind"`
			Payload        notifications.Payload `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(msg.Body, &event))
		assert.Equal(t, created.ID, event.NotificationID)
		assert.Equal(t, recipientID, event.RecipientID)
		assert.Equal(t, "new_bid", event.Kind)
		assert.Equal(t, listingID, event.Payload.ListingID)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for delivery event")
	}

	// The outbox row is marked published.
	require.Eventually(t, func() bool {
		var status string
		err := testDB.Pool.QueryRow(ctx,
			`SELECT status FROM outbox_events WHERE id = $1`, findOutboxID(t, testDB, created.ID)).Scan(&status)
		return err == nil && status == "published"
	}, 5*time.Second, 100*time.Millisecond)
}

// findOutboxID locates the outbox row staged for a notification by matching
// the notification id embedded in the payload.
func findOutboxID(t *testing.T, testDB *testhelpers.TestDatabase, notificationID uuid.UUID) uuid.UUID {
	t.Helper()

	rows, err := testDB.Pool.Query(context.Background(),
		`SELECT id, payload FROM outbox_events`)
	require.NoError(t, err)
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var payload []byte
		require.NoError(t, rows.Scan(&id, &payload))

		var event struct {
			NotificationID uuid.UUID `json:"notification_id"`
		}
		if json.Unmarshal(payload, &event) == nil && event.NotificationID == notificationID {
			return id
		}
	}
	t.Fatalf("no outbox event found for notification %s", notificationID)
	return uuid.Nil
}
