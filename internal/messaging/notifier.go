package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SceneAdvanced публикуется после того, как голова читателя переключилась на новую сцену.
type SceneAdvanced struct {
	Reader      string    `json:"reader"`
	Previous    string    `json:"previous"`
	Scene       string    `json:"scene"`
	Title       string    `json:"title"`
	MetadataURI string    `json:"metadataUri"`
	Signature   string    `json:"signature"`
	At          time.Time `json:"at"`
}

// Notifier отправляет уведомления о продвижении истории.
type Notifier interface {
	NotifySceneAdvanced(ctx context.Context, event SceneAdvanced) error
}

// publisher - часть *amqp.Channel, нужная нотификатору.
type publisher interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitMQNotifier struct {
	channel   publisher
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQNotifier объявляет очередь событий и возвращает Notifier.
// Канал открывается и закрывается снаружи (в main.go).
func NewRabbitMQNotifier(ch *amqp.Channel, queueName string, logger *zap.Logger) (Notifier, error) {
	return newRabbitMQNotifier(ch, queueName, logger)
}

func newRabbitMQNotifier(ch publisher, queueName string, logger *zap.Logger) (*rabbitMQNotifier, error) {
	_, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue '%s': %w", queueName, err)
	}
	log := logger.Named("SceneNotifier")
	log.Info("Scene events queue declared", zap.String("queue", queueName))
	return &rabbitMQNotifier{channel: ch, queueName: queueName, logger: log}, nil
}

func (n *rabbitMQNotifier) NotifySceneAdvanced(ctx context.Context, event SceneAdvanced) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal scene event for reader %s: %w", event.Reader, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = n.channel.PublishWithContext(ctx,
		"",
		n.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    event.At,
			AppId:        "gamebook-server",
			MessageId:    event.Signature,
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish scene event", zap.String("reader", event.Reader), zap.Error(err))
		return fmt.Errorf("failed to publish scene event for reader %s: %w", event.Reader, err)
	}
	n.logger.Info("Scene event published", zap.String("reader", event.Reader), zap.String("scene", event.Scene))
	return nil
}

// logNotifier используется, когда RabbitMQ не настроен: событие только пишется в лог.
type logNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger.Named("SceneNotifier")}
}

func (n *logNotifier) NotifySceneAdvanced(_ context.Context, event SceneAdvanced) error {
	n.logger.Info("Scene advanced",
		zap.String("reader", event.Reader),
		zap.String("previous", event.Previous),
		zap.String("scene", event.Scene),
		zap.String("signature", event.Signature),
	)
	return nil
}
