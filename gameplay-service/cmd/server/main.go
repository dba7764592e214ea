package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adventure-server/gameplay-service/internal/builds"
	"adventure-server/gameplay-service/internal/config"
	"adventure-server/gameplay-service/internal/handler"
	"adventure-server/gameplay-service/internal/messaging"
	"adventure-server/gameplay-service/internal/scenarios"
	"adventure-server/gameplay-service/internal/service"
	"adventure-server/pkg/database"
	"adventure-server/pkg/migration"
	"adventure-server/shared/authutils"
	sharedDatabase "adventure-server/shared/database"
	sharedLogger "adventure-server/shared/logger"
	sharedMessaging "adventure-server/shared/messaging"
	sharedMiddleware "adventure-server/shared/middleware"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting gameplay-service", cfg.LogFields()...)

	ctx := context.Background()
	dbPool, err := database.Connect(ctx, cfg.Database(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()

	if cfg.AutoMigrate {
		migrator := migration.NewMigrator(migration.Config{
			MigrationsPath: sharedDatabase.MigrationsDir,
			MigrationsFS:   sharedDatabase.MigrationsFS,
		}, dbPool)
		if err := migrator.Up(ctx); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	rabbitConn, err := sharedMessaging.Dial(cfg.RabbitMQURL, 5, 5*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()

	if err := declareTaskQueue(rabbitConn, cfg.AvatarTaskQueue); err != nil {
		logger.Fatal("Failed to declare avatar task queue", zap.Error(err))
	}
	avatarPublisher, err := sharedMessaging.NewRabbitMQPublisher(rabbitConn, cfg.AvatarTaskQueue, logger)
	if err != nil {
		logger.Fatal("Failed to create avatar task publisher", zap.Error(err))
	}
	defer avatarPublisher.Close()

	catalog, err := scenarios.LoadCatalog(cfg.ScenarioTemplatesDir, logger)
	if err != nil {
		logger.Fatal("Failed to load adventure templates", zap.Error(err))
	}
	buildLookup, err := builds.NewDefault(logger)
	if err != nil {
		logger.Fatal("Failed to load build table", zap.Error(err))
	}

	characterRepo := sharedDatabase.NewPgCharacterRepository(logger)
	repos := service.Repositories{
		Characters: characterRepo,
		Adventures: sharedDatabase.NewPgAdventureRepository(logger),
		Scenarios:  sharedDatabase.NewPgScenarioRepository(logger),
		Progress:   sharedDatabase.NewPgProgressRepository(logger),
		Decisions:  sharedDatabase.NewPgDecisionRepository(logger),
	}
	txManager := sharedDatabase.NewTransactionHelper(dbPool, logger)

	characterService := service.NewCharacterService(dbPool, characterRepo, buildLookup, avatarPublisher, cfg.AvatarPlaceholderURL, logger)
	progressionService := service.NewProgressionService(dbPool, txManager, repos, catalog, buildLookup, cfg.ResultDisplayDelay, logger)

	verifier, err := authutils.NewJWTVerifier(cfg.JWTSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create JWT verifier", zap.Error(err))
	}
	idempotencyStore := sharedDatabase.NewRedisIdempotencyStore(redisClient, "gameplay:choice", logger)
	gameplayHandler := handler.NewGameplayHandler(characterService, progressionService, catalog,
		idempotencyStore, cfg.IdempotencyTTL, verifier.VerifyToken, logger)

	avatarConsumer := messaging.NewAvatarResultConsumer(rabbitConn,
		messaging.NewAvatarResultProcessor(characterService, logger), cfg.AvatarResultQueue, logger)
	go func() {
		if err := avatarConsumer.StartConsuming(); err != nil {
			logger.Error("Avatar result consumer stopped with error", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(sharedMiddleware.EchoZapLogger(logger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	gameplayHandler.RegisterRoutes(e)

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	avatarConsumer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	logger.Info("gameplay-service stopped")
}

// declareTaskQueue makes sure tasks published before the worker starts are kept.
func declareTaskQueue(conn *amqp.Connection, name string) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	return sharedMessaging.DeclareTaskQueue(ch, name)
}
