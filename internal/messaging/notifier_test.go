package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	declareErr error
	publishErr error
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if c.declareErr != nil {
		return amqp.Queue{}, c.declareErr
	}
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func sampleEvent() SceneAdvanced {
	return SceneAdvanced{
		Reader:      "reader",
		Previous:    "prev",
		Scene:       "next",
		Title:       "Bridge",
		MetadataURI: "https://cdn/meta.json",
		Signature:   "sig",
		At:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRabbitMQNotifier_Publishes(t *testing.T) {
	ch := &fakeChannel{}
	n, err := newRabbitMQNotifier(ch, "scene_events", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"scene_events"}, ch.declared)

	require.NoError(t, n.NotifySceneAdvanced(context.Background(), sampleEvent()))
	require.Len(t, ch.published, 1)
	assert.Equal(t, "scene_events", ch.keys[0])

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "sig", msg.MessageId)

	var got SceneAdvanced
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, sampleEvent(), got)
}

func TestRabbitMQNotifier_DeclareError(t *testing.T) {
	_, err := newRabbitMQNotifier(&fakeChannel{declareErr: errors.New("channel closed")}, "q", zap.NewNop())
	assert.Error(t, err)
}

func TestRabbitMQNotifier_PublishError(t *testing.T) {
	ch := &fakeChannel{}
	n, err := newRabbitMQNotifier(ch, "q", zap.NewNop())
	require.NoError(t, err)
	ch.publishErr = errors.New("connection reset")

	err = n.NotifySceneAdvanced(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, ch.publishErr)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(zap.NewNop()).NotifySceneAdvanced(context.Background(), sampleEvent()))
}
