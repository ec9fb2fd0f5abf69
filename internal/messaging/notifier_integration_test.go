//go:build integration

package messaging_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gamebook-server/internal/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func TestRabbitMQNotifier_Integration(t *testing.T) {
	ctx := context.Background()

	rmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete"),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rmqContainer.Terminate(context.Background()) })

	url, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	const queue = "scene_events_it"
	notifier, err := messaging.NewRabbitMQNotifier(ch, queue, zap.NewNop())
	require.NoError(t, err)

	event := messaging.SceneAdvanced{
		Reader:    "reader",
		Previous:  "prev",
		Scene:     "next",
		Signature: "sig-it",
		At:        time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, notifier.NotifySceneAdvanced(ctx, event))

	deliveries, err := ch.Consume(queue, "", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got messaging.SceneAdvanced
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, event.Reader, got.Reader)
		assert.Equal(t, event.Scene, got.Scene)
		assert.Equal(t, "sig-it", d.MessageId)
	case <-time.After(10 * time.Second):
		t.Fatal("scene event not delivered")
	}
}
