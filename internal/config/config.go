package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	TransportLog     = "log"
	TransportKafka   = "kafka"
	TransportWebhook = "webhook"
)

type Config struct {
	Port    string `env:"PORT,default=8080"`
	GinMode string `env:"GIN_MODE,default=release"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	Storage    string `env:"STORAGE,default=postgres"`
	DBHost     string `env:"DB_HOST,default=localhost"`
	DBPort     string `env:"DB_PORT,default=5432"`
	DBUser     string `env:"DB_USER,default=postgres"`
	DBPassword string `env:"DB_PASSWORD,default=postgres"`
	DBName     string `env:"DB_NAME,default=messaging"`
	DBSSLMode  string `env:"DB_SSLMODE,default=disable"`

	// An empty RedisHost keeps the page cache in process memory.
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     string `env:"REDIS_PORT,default=6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	PageCacheTTL time.Duration `env:"PAGE_CACHE_TTL,default=60s"`

	NotifyTransport  string        `env:"NOTIFY_TRANSPORT,default=log"`
	KafkaBrokers     string        `env:"KAFKA_BROKERS,default=localhost:9092"`
	KafkaTopic       string        `env:"KAFKA_TOPIC,default=notifications"`
	WebhookURL       string        `env:"WEBHOOK_URL"`
	WebhookAuthKey   string        `env:"WEBHOOK_AUTH_KEY"`
	WebhookTimeout   time.Duration `env:"WEBHOOK_TIMEOUT,default=10s"`
	DispatchInterval time.Duration `env:"DISPATCH_INTERVAL,default=30s"`
	DispatchBatch    int           `env:"DISPATCH_BATCH,default=50"`
	DispatchOnStart  bool          `env:"DISPATCH_ON_START,default=true"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	switch c.NotifyTransport {
	case TransportLog, TransportKafka:
	case TransportWebhook:
		if c.WebhookURL == "" {
			return errors.New("WEBHOOK_URL is required for the webhook transport")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_TRANSPORT %q", c.NotifyTransport)
	}
	if c.PageCacheTTL < time.Second {
		return fmt.Errorf("PAGE_CACHE_TTL must be at least 1s, got %s", c.PageCacheTTL)
	}
	if c.DispatchInterval <= 0 {
		return fmt.Errorf("DISPATCH_INTERVAL must be positive, got %s", c.DispatchInterval)
	}
	if c.DispatchBatch <= 0 {
		return fmt.Errorf("DISPATCH_BATCH must be positive, got %d", c.DispatchBatch)
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
