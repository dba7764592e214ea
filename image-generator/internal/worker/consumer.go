package worker

import (
	"context"
	"fmt"

	"adventure-server/shared/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer reads the avatar task queue and settles each delivery according
// to the handler's Outcome.
type Consumer struct {
	conn         *amqp.Connection
	handler      *Handler
	queueName    string
	consumerName string
	prefetch     int
	logger       *zap.Logger
}

func NewConsumer(conn *amqp.Connection, handler *Handler, queueName, consumerName string, prefetch int, logger *zap.Logger) *Consumer {
	if prefetch < 1 {
		prefetch = 1
	}
	return &Consumer{
		conn:         conn,
		handler:      handler,
		queueName:    queueName,
		consumerName: consumerName,
		prefetch:     prefetch,
		logger:       logger.Named("TaskConsumer").With(zap.String("queue", queueName)),
	}
}

// Run blocks until ctx is cancelled or the channel is closed by the broker.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := messaging.DeclareTaskQueue(ch, c.queueName); err != nil {
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := ch.Consume(c.queueName, c.consumerName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	c.logger.Info("Consumer started, waiting for messages...")

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Consumer channel closed by RabbitMQ")
				return nil
			}
			c.settle(msg, c.handler.HandleDelivery(ctx, msg))
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping consumer")
			return nil
		}
	}
}

func (c *Consumer) settle(msg amqp.Delivery, outcome Outcome) {
	var err error
	switch outcome {
	case Ack:
		err = msg.Ack(false)
	case Requeue:
		err = msg.Nack(false, true)
	default:
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.logger.Error("Failed to settle message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
	}
}
