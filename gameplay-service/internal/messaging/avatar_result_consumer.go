// Package messaging consumes avatar results produced by the image generator.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sharedMessaging "adventure-server/shared/messaging"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrMalformedResult marks a message that can never be processed.
var ErrMalformedResult = errors.New("malformed avatar result")

// AvatarResultHandler applies one result. Implemented by service.CharacterService.
type AvatarResultHandler interface {
	ApplyAvatarResult(ctx context.Context, result sharedMessaging.AvatarResultPayload) error
}

// AvatarResultProcessor decodes and applies results. Kept apart from the
// consumer so it can be tested without a broker.
type AvatarResultProcessor struct {
	handler AvatarResultHandler
	timeout time.Duration
	logger  *zap.Logger
}

func NewAvatarResultProcessor(handler AvatarResultHandler, logger *zap.Logger) *AvatarResultProcessor {
	return &AvatarResultProcessor{
		handler: handler,
		timeout: 15 * time.Second,
		logger:  logger.Named("AvatarResultProcessor"),
	}
}

// Process returns ErrMalformedResult for bodies that should be dropped and
// the handler's error for ones worth retrying.
func (p *AvatarResultProcessor) Process(ctx context.Context, body []byte) error {
	var result sharedMessaging.AvatarResultPayload
	if err := json.Unmarshal(body, &result); err != nil {
		p.logger.Error("Failed to decode avatar result", zap.Error(err), zap.ByteString("body", body))
		return fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if result.CharacterID == uuid.Nil {
		p.logger.Error("Avatar result without character id", zap.String("taskID", result.TaskID))
		return fmt.Errorf("%w: missing characterId", ErrMalformedResult)
	}

	dbCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.handler.ApplyAvatarResult(dbCtx, result)
}

// AvatarResultConsumer reads the result queue until Stop is called.
type AvatarResultConsumer struct {
	conn        *amqp.Connection
	processor   *AvatarResultProcessor
	queueName   string
	stopChannel chan struct{}
	logger      *zap.Logger
}

func NewAvatarResultConsumer(conn *amqp.Connection, processor *AvatarResultProcessor, queueName string, logger *zap.Logger) *AvatarResultConsumer {
	return &AvatarResultConsumer{
		conn:        conn,
		processor:   processor,
		queueName:   queueName,
		stopChannel: make(chan struct{}),
		logger:      logger.Named("AvatarResultConsumer").With(zap.String("queue", queueName)),
	}
}

// StartConsuming blocks until Stop is called or the channel closes.
func (c *AvatarResultConsumer) StartConsuming() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := sharedMessaging.DeclareResultQueue(ch, c.queueName); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("consumer: failed to set QoS: %w", err)
	}
	msgs, err := ch.Consume(
		c.queueName,
		"gameplay-avatar-results",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consumer: failed to register consumer: %w", err)
	}
	c.logger.Info("Waiting for avatar results")

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("RabbitMQ delivery channel closed")
				return nil
			}
			c.handle(d)
		case <-c.stopChannel:
			c.logger.Info("Stop signal received")
			return nil
		}
	}
}

func (c *AvatarResultConsumer) handle(d amqp.Delivery) {
	err := c.processor.Process(context.Background(), d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrMalformedResult):
		_ = d.Nack(false, false)
	case d.Redelivered:
		c.logger.Error("Avatar result failed twice, dropping", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		_ = d.Nack(false, false)
	default:
		c.logger.Warn("Avatar result failed, requeueing", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		_ = d.Nack(false, true)
	}
}

// Stop ends StartConsuming.
func (c *AvatarResultConsumer) Stop() {
	close(c.stopChannel)
}
