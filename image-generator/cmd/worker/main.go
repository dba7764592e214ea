package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adventure-server/image-generator/internal/config"
	"adventure-server/image-generator/internal/service"
	"adventure-server/image-generator/internal/storage"
	"adventure-server/image-generator/internal/worker"
	"adventure-server/shared/logger"
	"adventure-server/shared/messaging"

	"go.uber.org/zap"
)

const (
	maxConnectAttempts = 5
	reconnectDelay     = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Shared())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Starting Image Generator Worker...",
		zap.String("env", cfg.AppEnv),
		zap.String("blob_backend", cfg.Storage.Backend),
		zap.String("model", cfg.OpenAI.Model))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := newBlobStore(ctx, cfg.Storage, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob store", zap.Error(err))
	}
	defer closeStore()

	generator, err := service.NewOpenAIGenerator(cfg.OpenAI, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize image generator", zap.Error(err))
	}
	avatarService := service.NewAvatarService(generator, store, cfg.PromptStyleSuffix, appLogger)

	conn, err := messaging.Dial(cfg.RabbitMQ.URL, maxConnectAttempts, reconnectDelay, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		appLogger.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
	}
	if err := messaging.DeclareResultQueue(ch, cfg.RabbitMQ.ResultQueueName); err != nil {
		appLogger.Fatal("Failed to declare result queue", zap.Error(err))
	}
	_ = ch.Close()

	resultPublisher, err := messaging.NewRabbitMQPublisher(conn, cfg.RabbitMQ.ResultQueueName, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create result publisher", zap.Error(err))
	}
	defer resultPublisher.Close()

	handler := worker.NewHandler(appLogger, avatarService, resultPublisher, cfg.PushGatewayURL, cfg.TaskTimeout)
	consumer := worker.NewConsumer(conn, handler, cfg.RabbitMQ.TaskQueueName, cfg.RabbitMQ.ConsumerName, cfg.RabbitMQ.Prefetch, appLogger)

	appLogger.Info("Image Generator Worker started successfully")
	if err := consumer.Run(ctx); err != nil {
		appLogger.Error("Consumer stopped with error", zap.Error(err))
	}
	appLogger.Info("Image Generator Worker shut down")
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.BlobStore, func(), error) {
	if cfg.Backend == "gcs" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile, cfg.GCSPublicBaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	}
	fs, err := storage.NewFileSystemStore(cfg.LocalPath, cfg.PublicBaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}
