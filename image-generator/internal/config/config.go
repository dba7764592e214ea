package config

import (
	"fmt"
	"time"

	"adventure-server/shared/logger"
	sharedMessaging "adventure-server/shared/messaging"
	"adventure-server/shared/utils"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds the worker settings.
type Config struct {
	AppEnv         string `env:"APP_ENV" env-default:"development"`
	Logger         LoggerConfig
	RabbitMQ       RabbitMQConfig
	OpenAI         OpenAIConfig
	Storage        StorageConfig
	PushGatewayURL string `env:"PUSHGATEWAY_URL"` // metrics are not pushed when empty
	// Appended to every prompt.
	PromptStyleSuffix string        `env:"IMAGE_PROMPT_STYLE_SUFFIX" env-default:""`
	TaskTimeout       time.Duration `env:"TASK_TIMEOUT" env-default:"3m"`
}

type LoggerConfig struct {
	Level    string `env:"LOG_LEVEL" env-default:"info"`
	Encoding string `env:"LOG_ENCODING" env-default:"json"`
}

func (c LoggerConfig) Shared() logger.Config {
	return logger.Config{Level: c.Level, Encoding: c.Encoding}
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL" env-required:"true"`
	ConsumerName    string `env:"RABBITMQ_CONSUMER_NAME" env-default:"image_generator_worker"`
	TaskQueueName   string `env:"AVATAR_TASK_QUEUE" env-default:"avatar_generation_tasks"`
	ResultQueueName string `env:"AVATAR_RESULT_QUEUE" env-default:"avatar_generation_results"`
	Prefetch        int    `env:"RABBITMQ_PREFETCH" env-default:"1"`
}

// OpenAIConfig configures the images API. APIKey falls back to the
// openai_api_key secret when OPENAI_API_KEY is empty.
type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL"`
	Model   string `env:"OPENAI_IMAGE_MODEL" env-default:"dall-e-3"`
	Size    string `env:"OPENAI_IMAGE_SIZE" env-default:"1024x1024"`
	// FetchTimeout bounds the download of the generated image.
	FetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT" env-default:"60s"`
}

// StorageConfig selects where avatars are written: "fs" or "gcs".
type StorageConfig struct {
	Backend       string `env:"BLOB_BACKEND" env-default:"fs"`
	LocalPath     string `env:"IMAGE_SAVE_PATH" env-default:"./data/avatars"`
	PublicBaseURL string `env:"IMAGE_PUBLIC_BASE_URL" env-default:"/static/avatars"`

	GCSBucket          string `env:"GCS_BUCKET"`
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
	// GCSPublicBaseURL overrides https://storage.googleapis.com/<bucket>, e.g. for a CDN domain.
	GCSPublicBaseURL string `env:"GCS_PUBLIC_BASE_URL"`
}

// Load reads .env (if present), the environment and secrets.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		key, err := utils.ReadSecret("openai_api_key")
		if err != nil {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set: %w", err)
		}
		cfg.OpenAI.APIKey = key
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "fs":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for the gcs blob backend")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.Storage.Backend)
	}
	if c.RabbitMQ.TaskQueueName == "" {
		c.RabbitMQ.TaskQueueName = sharedMessaging.AvatarTaskQueueName
	}
	if c.RabbitMQ.ResultQueueName == "" {
		c.RabbitMQ.ResultQueueName = sharedMessaging.AvatarResultQueueName
	}
	return nil
}
