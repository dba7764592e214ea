//go:build integration

package messaging_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"adventure-server/shared/messaging"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RabbitMQSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	conn      *amqp.Connection
}

func TestRabbitMQSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQSuite))
}

func (s *RabbitMQSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = rabbitmq.Run(s.ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(s.T(), err, "failed to start rabbitmq container")

	url, err := s.container.AmqpURL(s.ctx)
	require.NoError(s.T(), err)
	s.conn, err = messaging.Dial(url, 5, 2*time.Second, zap.NewNop())
	require.NoError(s.T(), err)
}

func (s *RabbitMQSuite) TearDownSuite() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RabbitMQSuite) channel() *amqp.Channel {
	ch, err := s.conn.Channel()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = ch.Close() })
	return ch
}

func (s *RabbitMQSuite) getOne(ch *amqp.Channel, queue string) amqp.Delivery {
	var msg amqp.Delivery
	s.Require().Eventually(func() bool {
		var ok bool
		var err error
		msg, ok, err = ch.Get(queue, false)
		return err == nil && ok
	}, 10*time.Second, 100*time.Millisecond, "no message on %s", queue)
	return msg
}

func (s *RabbitMQSuite) TestPublishAndConsumeTask() {
	ch := s.channel()
	queue := "avatar_tasks_" + uuid.NewString()
	s.Require().NoError(messaging.DeclareTaskQueue(ch, queue))

	pub, err := messaging.NewRabbitMQPublisher(s.conn, queue, zap.NewNop())
	s.Require().NoError(err)
	defer pub.Close()

	task := messaging.AvatarTaskPayload{TaskID: "t1", UserID: uuid.New(), CharacterID: uuid.New(), Prompt: "Portrait"}
	s.Require().NoError(pub.Publish(s.ctx, task, "corr-1"))

	msg := s.getOne(ch, queue)
	s.Equal("corr-1", msg.CorrelationId)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var got messaging.AvatarTaskPayload
	s.Require().NoError(json.Unmarshal(msg.Body, &got))
	s.Equal(task, got)
	s.Require().NoError(msg.Ack(false))
}

func (s *RabbitMQSuite) TestRejectedTaskIsDeadLettered() {
	ch := s.channel()
	queue := "avatar_tasks_" + uuid.NewString()
	s.Require().NoError(messaging.DeclareTaskQueue(ch, queue))
	_, err := ch.QueuePurge(messaging.AvatarTaskDLQName, false)
	s.Require().NoError(err)

	pub, err := messaging.NewRabbitMQPublisher(s.conn, queue, zap.NewNop())
	s.Require().NoError(err)
	defer pub.Close()
	s.Require().NoError(pub.Publish(s.ctx, map[string]string{"broken": "payload"}, "corr-dlq"))

	msg := s.getOne(ch, queue)
	s.Require().NoError(msg.Nack(false, false))

	dead := s.getOne(ch, messaging.AvatarTaskDLQName)
	s.Equal("corr-dlq", dead.CorrelationId)
	s.Require().NoError(dead.Ack(false))
}
