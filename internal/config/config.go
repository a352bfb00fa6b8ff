package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageLocal    = "local"
	StoragePostgres = "postgres"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

type Config struct {
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"storefront-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"local"`
	LocalDataDir   string `envconfig:"LOCAL_DATA_DIR" default:"./data"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN"`
	RunMigrations  bool   `envconfig:"RUN_MIGRATIONS" default:"true"`

	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"memory"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// Admin sign-in is disabled unless both are set. The hash is bcrypt.
	AdminEmail        string `envconfig:"ADMIN_EMAIL"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// Customer sign-in with Google ID tokens. Startup fails when it is enabled
	// without a client id.
	GoogleSignInEnabled bool   `envconfig:"GOOGLE_SIGNIN_ENABLED" default:"true"`
	GoogleClientID      string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleCertsURL      string `envconfig:"GOOGLE_CERTS_URL" default:"https://www.googleapis.com/oauth2/v3/certs"`

	WebhookURL             string        `envconfig:"WEBHOOK_URL"`
	WebhookTimeout         time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"5s"`
	RabbitMQURL            string        `envconfig:"RABBITMQ_URL"`
	PublishEnvelopedEvents bool          `envconfig:"PUBLISH_ENVELOPED_EVENTS" default:"true"`
	KafkaBrokers           string        `envconfig:"KAFKA_BROKERS"`
	KafkaTopic             string        `envconfig:"KAFKA_TOPIC" default:"storefront.orders"`

	CORSAllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	SeedCatalog      bool   `envconfig:"SEED_CATALOG" default:"true"`
	MaxProofBytes    int64  `envconfig:"MAX_PROOF_BYTES" default:"5242880"`
}

// Load reads an optional .env file and then the process environment. Variables already
// set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageLocal:
		if strings.TrimSpace(c.LocalDataDir) == "" {
			return errors.New("LOCAL_DATA_DIR is required for the local storage backend")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return errors.New("DATABASE_DSN is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.SessionBackend {
	case SessionMemory, SessionRedis:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	if (c.AdminEmail == "") != (c.AdminPasswordHash == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD_HASH must be set together")
	}
	if c.GoogleSignInEnabled && strings.TrimSpace(c.GoogleClientID) == "" {
		return errors.New("GOOGLE_CLIENT_ID is required while GOOGLE_SIGNIN_ENABLED is true")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.MaxProofBytes <= 0 {
		return errors.New("MAX_PROOF_BYTES must be positive")
	}
	return nil
}

func (c *Config) KafkaBrokerList() []string {
	return splitCSV(c.KafkaBrokers)
}

func (c *Config) CORSOrigins() []string {
	origins := splitCSV(c.CORSAllowOrigins)
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
