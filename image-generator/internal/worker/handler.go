package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"adventure-server/image-generator/internal/service"
	"adventure-server/shared/messaging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	Ack     Outcome = iota
	Requeue         // transient failure, try again
	Reject          // dead-letter without requeue
)

type Handler struct {
	logger          *zap.Logger
	avatarService   service.AvatarService
	resultPublisher messaging.Publisher
	pusher          *push.Pusher // nil disables pushing
	taskTimeout     time.Duration
}

func NewHandler(
	logger *zap.Logger,
	avatarService service.AvatarService,
	resultPublisher messaging.Publisher,
	pushGatewayURL string,
	taskTimeout time.Duration,
) *Handler {
	h := &Handler{
		logger:          logger.Named("WorkerHandler"),
		avatarService:   avatarService,
		resultPublisher: resultPublisher,
		taskTimeout:     taskTimeout,
	}
	if pushGatewayURL != "" {
		hostname, _ := os.Hostname()
		h.pusher = push.New(pushGatewayURL, "image-generator").
			Grouping("instance", hostname).
			Gatherer(prometheus.DefaultGatherer)
		h.logger.Info("Prometheus Pusher initialized", zap.String("url", pushGatewayURL), zap.String("instance", hostname))
	}
	return h
}

// HandleDelivery processes one task message.
func (h *Handler) HandleDelivery(ctx context.Context, msg amqp.Delivery) Outcome {
	defer h.pushMetrics()
	return h.handle(ctx, msg.Body, msg.CorrelationId, msg.Redelivered)
}

func (h *Handler) handle(ctx context.Context, body []byte, correlationID string, redelivered bool) Outcome {
	var task messaging.AvatarTaskPayload
	if err := json.Unmarshal(body, &task); err != nil {
		h.logger.Error("Failed to unmarshal avatar task",
			zap.Error(err),
			zap.String("correlation_id", correlationID),
			zap.ByteString("body", body))
		tasksProcessed.WithLabelValues("error_unmarshal").Inc()
		return Reject
	}

	log := h.logger.With(
		zap.String("task_id", task.TaskID),
		zap.Stringer("character_id", task.CharacterID),
		zap.String("correlation_id", correlationID))
	log.Info("Received avatar generation task")

	taskCtx, cancel := context.WithTimeout(ctx, h.taskTimeout)
	defer cancel()

	start := time.Now()
	ref, err := h.avatarService.GenerateAndStore(taskCtx, task)
	taskDuration.Observe(time.Since(start).Seconds())

	result := messaging.AvatarResultPayload{
		TaskID:      task.TaskID,
		CharacterID: task.CharacterID,
	}
	switch {
	case err == nil:
		result.Success = true
		result.AvatarRef = ref
		tasksProcessed.WithLabelValues("success").Inc()
	case errors.Is(err, service.ErrInvalidTask):
		tasksProcessed.WithLabelValues("error_invalid").Inc()
		log.Warn("Invalid avatar task", zap.Error(err))
		return Reject
	default:
		status := "error_generation"
		if errors.Is(err, service.ErrImageSaveFailed) {
			status = "error_save"
		}
		tasksProcessed.WithLabelValues(status).Inc()
		errMsg := err.Error()
		result.ErrorMessage = &errMsg
		log.Error("Avatar generation failed, reporting failure", zap.Error(err))
	}

	if pubErr := h.resultPublisher.Publish(ctx, result, correlationID); pubErr != nil {
		log.Error("Failed to publish avatar result", zap.Error(pubErr))
		publishResultErrors.Inc()
		tasksProcessed.WithLabelValues("error_publish").Inc()
		if redelivered {
			return Reject
		}
		return Requeue
	}
	log.Info("Avatar result published", zap.Bool("success", result.Success))
	return Ack
}

func (h *Handler) pushMetrics() {
	if h.pusher == nil {
		return
	}
	if err := h.pusher.Push(); err != nil {
		h.logger.Error("Failed to push metrics to Pushgateway", zap.Error(err))
	}
}
