package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends a JSON payload to a queue.
type Publisher interface {
	Publish(ctx context.Context, payload any, correlationID string) error
}

// RabbitMQPublisher publishes persistent JSON messages through the default
// exchange. A channel is not safe for concurrent use, hence the mutex.
type RabbitMQPublisher struct {
	mu        sync.Mutex
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

var _ Publisher = (*RabbitMQPublisher)(nil)

// NewRabbitMQPublisher opens its own channel on conn. The queue is declared by
// the caller (see DeclareTaskQueue) so its arguments match the consumer's.
func NewRabbitMQPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("publisher %s: failed to open channel: %w", queueName, err)
	}
	return &RabbitMQPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("RabbitMQPublisher").With(zap.String("queue", queueName)),
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, payload any, correlationID string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %s: %w", p.queueName, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: correlationID,
			Timestamp:     time.Now(),
			Body:          body,
		})
	if err != nil {
		p.logger.Error("Failed to publish message", zap.Error(err), zap.String("correlation_id", correlationID))
		return fmt.Errorf("failed to publish to %s: %w", p.queueName, err)
	}
	p.logger.Debug("Message published", zap.String("correlation_id", correlationID), zap.Int("size", len(body)))
	return nil
}

// Close closes the publisher's channel.
func (p *RabbitMQPublisher) Close() error {
	return p.channel.Close()
}

// DeclareTaskQueue declares the avatar task queue together with its dead-letter
// exchange and queue.
func DeclareTaskQueue(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(AvatarTaskDLXName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX %s: %w", AvatarTaskDLXName, err)
	}
	if _, err := ch.QueueDeclare(AvatarTaskDLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ %s: %w", AvatarTaskDLQName, err)
	}
	if err := ch.QueueBind(AvatarTaskDLQName, AvatarTaskDLQRoutingKey, AvatarTaskDLXName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    AvatarTaskDLXName,
		"x-dead-letter-routing-key": AvatarTaskDLQRoutingKey,
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// DeclareResultQueue declares the plain durable result queue.
func DeclareResultQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// Dial connects to RabbitMQ, retrying with a fixed delay.
func Dial(url string, attempts int, delay time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err))
		if i < attempts {
			time.Sleep(delay)
		}
	}
	return nil, fmt.Errorf("rabbitmq unreachable after %d attempts: %w", attempts, lastErr)
}
