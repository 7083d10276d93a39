package eventbus_test

import (
	"context"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autoplan/internal/shared/infrastructure/eventbus"
)

func TestRabbitMQPublisher_ConfirmedDelivery(t *testing.T) {
	url := os.Getenv("TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TEST_RABBITMQ_URL not set, skipping integration test")
	}

	exchange := "autoplan.test." + time.Now().Format("150405.000")
	pub, err := eventbus.NewRabbitMQPublisher(url, exchange, nil)
	if err != nil {
		t.Skipf("Failed to connect to test broker: %v", err)
	}
	defer pub.Close()

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "test.#", exchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eventbus.PublishEvent(ctx, pub, newTestEvent(7)))

	select {
	case d := <-deliveries:
		assert.Equal(t, "test.counted", d.RoutingKey)
		assert.Equal(t, "application/json", d.ContentType)
		assert.Contains(t, string(d.Body), `"count":7`)
	case <-ctx.Done():
		t.Fatal("no delivery")
	}
}
