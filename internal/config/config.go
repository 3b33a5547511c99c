package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/smallbiznis/dreamforge/pkg/db"
)

// Config holds application configuration.
type Config struct {
	AppName       string `env:"APP_SERVICE" envDefault:"dreamforge"`
	AppVersion    string `env:"APP_VERSION" envDefault:"0.1.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	SnowflakeNode int64  `env:"SNOWFLAKE_NODE" envDefault:"1"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`

	DBType            string `env:"DATABASE_TYPE" envDefault:"postgres"`
	DBHost            string `env:"DATABASE_HOST" envDefault:"localhost"`
	DBPort            string `env:"DATABASE_PORT" envDefault:"5432"`
	DBName            string `env:"DATABASE_NAME" envDefault:"dreamforge"`
	DBUser            string `env:"DATABASE_USER" envDefault:"postgres"`
	DBPassword        string `env:"DATABASE_PASSWORD"`
	DBSSLMode         string `env:"DATABASE_SSLMODE" envDefault:"disable"`
	DBPath            string `env:"DATABASE_PATH" envDefault:"dreamforge.db"`
	DBMaxIdleConn     int    `env:"DATABASE_MAX_IDLE_CONN" envDefault:"5"`
	DBMaxOpenConn     int    `env:"DATABASE_MAX_OPEN_CONN" envDefault:"20"`
	DBConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"300"`
	DBConnMaxIdleTime int    `env:"DATABASE_CONN_MAX_IDLE_TIME" envDefault:"60"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Webhooks     WebhookConfig    `envPrefix:"WEBHOOK_"`
	Identity     IdentityConfig   `envPrefix:"IDENTITY_"`
	Generation   GenerationConfig `envPrefix:"GENERATION_"`
	Storage      StorageConfig    `envPrefix:"STORAGE_"`
	Checkout     CheckoutConfig   `envPrefix:"CHECKOUT_"`
	Notification NotifyConfig     `envPrefix:"NOTIFY_"`
	RateLimit    RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
	Catalog      CatalogConfig    `envPrefix:"CATALOG_"`
	Scheduler    SchedulerConfig  `envPrefix:"SCHEDULER_"`
}

// WebhookConfig carries the shared secrets of each payment provider.
// An empty secret means the provider's webhook is not configured and fails closed.
type WebhookConfig struct {
	LemonSqueezySecret string `env:"LEMON_SQUEEZY_SECRET"`
	PaddleSecret       string `env:"PADDLE_SECRET"`
}

// IdentityConfig points at the external identity provider that issues bearer tokens.
type IdentityConfig struct {
	URL         string        `env:"URL"`
	AnonKey     string        `env:"ANON_KEY"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"5s"`
	AdminUserID string        `env:"BOOTSTRAP_ADMIN_ID"`
}

type GenerationConfig struct {
	BaseURL      string        `env:"BASE_URL" envDefault:"https://api.replicate.com/v1"`
	APIToken     string        `env:"API_TOKEN"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"120s"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	SettingsFile string        `env:"SETTINGS_FILE" envDefault:"generation"`
}

type StorageConfig struct {
	URL        string        `env:"URL"`
	ServiceKey string        `env:"SERVICE_KEY"`
	Bucket     string        `env:"BUCKET" envDefault:"dreams"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type CheckoutConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://api.lemonsqueezy.com/v1"`
	APIKey  string        `env:"API_KEY"`
	StoreID string        `env:"STORE_ID"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type NotifyConfig struct {
	SlackWebhookURL string        `env:"SLACK_WEBHOOK_URL"`
	SMTPHost        string        `env:"SMTP_HOST"`
	SMTPPort        int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser        string        `env:"SMTP_USER"`
	SMTPPassword    string        `env:"SMTP_PASSWORD"`
	SMTPFrom        string        `env:"SMTP_FROM"`
	OperatorEmails  []string      `env:"OPERATOR_EMAILS" envSeparator:","`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxInFlight     int           `env:"MAX_IN_FLIGHT" envDefault:"16"`

	// PurchaseReceipts e-mails the buyer after credits are granted.
	PurchaseReceipts bool `env:"PURCHASE_RECEIPTS" envDefault:"false"`
}

// RateLimitConfig only takes effect when RedisAddr is set.
type RateLimitConfig struct {
	GenerationRate    float64       `env:"GENERATION_RATE" envDefault:"0.2"`
	GenerationBurst   int           `env:"GENERATION_BURST" envDefault:"3"`
	GenerationLockTTL time.Duration `env:"GENERATION_LOCK_TTL" envDefault:"180s"`
}

type CatalogConfig struct {
	File string `env:"FILE" envDefault:"catalog.toml"`
}

// SchedulerConfig drives the in-process maintenance jobs started by serve.
type SchedulerConfig struct {
	Enabled           bool          `env:"ENABLED" envDefault:"true"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"15m"`
	JobTimeout        time.Duration `env:"JOB_TIMEOUT" envDefault:"2m"`
}

// Load loads configuration from environment variables and .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.DBType = strings.ToLower(strings.TrimSpace(cfg.DBType))
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Database derives the connection settings consumed by pkg/db.
func (c Config) Database() db.Config {
	return db.Config{
		Type:            c.DBType,
		Host:            c.DBHost,
		Port:            c.DBPort,
		Name:            c.DBName,
		User:            c.DBUser,
		Password:        c.DBPassword,
		SSLMode:         c.DBSSLMode,
		Path:            c.DBPath,
		MaxIdleConn:     c.DBMaxIdleConn,
		MaxOpenConn:     c.DBMaxOpenConn,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		ConnMaxIdleTime: c.DBConnMaxIdleTime,
	}
}
