package config

import (
	"fmt"
	"strings"
	"time"

	"adventure-server/pkg/database"
	"adventure-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the auth service settings. Secrets are read from files under
// utils.SecretsDir and fall back to the environment.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"debug"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8081"`

	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	DBPassword    string        `ignored:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string `ignored:"true"`

	JWTSecret       string        `ignored:"true"`
	PasswordPepper  string        `ignored:"true"`
	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TOKEN_TTL" default:"168h"`
	// Issuer claim of every token.
	ServiceID string `envconfig:"SERVICE_ID" default:"adventure-auth"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// AllowedOrigins splits CORSAllowedOrigins on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
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

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	var err error
	if cfg.DBPassword, err = utils.ReadSecretOrEnv("db_password", "DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.JWTSecret, err = utils.ReadSecretOrEnv("jwt_secret", "JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.PasswordPepper, err = utils.ReadSecretOrEnv("password_pepper", "PASSWORD_PEPPER"); err != nil {
		return nil, err
	}
	// Optional.
	cfg.RedisPassword, _ = utils.ReadSecretOrEnv("redis_password", "REDIS_PASSWORD")
	return &cfg, nil
}
