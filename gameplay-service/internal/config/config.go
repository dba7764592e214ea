package config

import (
	"fmt"
	"time"

	"adventure-server/pkg/database"
	"adventure-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config holds the gameplay-service settings.
type Config struct {
	Port        string `envconfig:"GAMEPLAY_SERVER_PORT" default:"8082"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Read from the db_password secret, not from the environment.
	DBPassword string `ignored:"true"`
	// Apply embedded migrations on startup.
	AutoMigrate bool `envconfig:"AUTO_MIGRATE" default:"true"`

	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"10m"`

	RabbitMQURL       string `envconfig:"RABBITMQ_URL" required:"true"`
	AvatarTaskQueue   string `envconfig:"AVATAR_TASK_QUEUE" default:"avatar_generation_tasks"`
	AvatarResultQueue string `envconfig:"AVATAR_RESULT_QUEUE" default:"avatar_generation_results"`

	// Shown to the client between a choice's result text and the next node.
	ResultDisplayDelay   time.Duration `envconfig:"RESULT_DISPLAY_DELAY" default:"1500ms"`
	AvatarPlaceholderURL string        `envconfig:"AVATAR_PLACEHOLDER_URL" default:"/static/avatar-placeholder.png"`
	ScenarioTemplatesDir string        `envconfig:"SCENARIO_TEMPLATES_DIR"`

	JWTSecret string `ignored:"true"`
}

// Database returns the pool settings.
func (c *Config) Database() database.Config {
	return database.Config{
		Host:        c.DBHost,
		Port:        c.DBPort,
		User:        c.DBUser,
		Password:    c.DBPassword,
		DBName:      c.DBName,
		SSLMode:     c.DBSSLMode,
		MaxConns:    c.DBMaxConns,
		IdleTimeout: c.DBIdleTimeout,
	}
}

// LoadConfig reads the environment and the db_password/jwt_secret secrets.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load gameplay-service config: %w", err)
	}

	var err error
	cfg.DBPassword, err = utils.ReadSecretOrEnv("db_password", "DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.JWTSecret, err = utils.ReadSecretOrEnv("jwt_secret", "JWT_SECRET")
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LogFields summarises the config without secrets.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("log_level", c.LogLevel),
		zap.String("db", fmt.Sprintf("postgres://%s:***@%s:%s/%s?sslmode=%s", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)),
		zap.Int("db_max_conns", c.DBMaxConns),
		zap.String("redis_addr", c.RedisAddr),
		zap.Duration("idempotency_ttl", c.IdempotencyTTL),
		zap.String("avatar_task_queue", c.AvatarTaskQueue),
		zap.String("avatar_result_queue", c.AvatarResultQueue),
		zap.Duration("result_display_delay", c.ResultDisplayDelay),
		zap.String("scenario_templates_dir", c.ScenarioTemplatesDir),
	}
}
