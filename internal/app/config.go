package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	InvoiceAPIURL     string        `envconfig:"INVOICE_API_URL" default:"http://127.0.0.1:5000/api"`
	InvoiceAPIKey     string        `envconfig:"INVOICE_API_KEY"`
	InvoiceAPITimeout time.Duration `envconfig:"INVOICE_API_TIMEOUT" default:"10s"`

	WorklistDefaultPageSize int           `envconfig:"WORKLIST_DEFAULT_PAGE_SIZE" default:"5"`
	WorklistSearchDebounce  time.Duration `envconfig:"WORKLIST_SEARCH_DEBOUNCE" default:"500ms"`
	WorklistTimezone        string        `envconfig:"WORKLIST_TIMEZONE" default:"Local"`
	WorklistIdleTTL         time.Duration `envconfig:"WORKLIST_IDLE_TTL" default:"30m"`

	RefdataTTL         time.Duration `envconfig:"REFDATA_TTL" default:"10m"`
	RefdataWarmupCron  string        `envconfig:"REFDATA_WARMUP_CRON" default:"@every 5m"`
	RefdataWarmupQueue string        `envconfig:"REFDATA_WARMUP_QUEUE" default:"default"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables, after pre-loading a .env
// file from the working directory when one exists.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.InvoiceAPIURL == "" {
		return nil, errors.New("invoice api url must be provided")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location resolves WORKLIST_TIMEZONE. "Local" and empty mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c == nil || c.WorklistTimezone == "" || c.WorklistTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.WorklistTimezone)
	if err != nil {
		return nil, fmt.Errorf("worklist timezone %q: %w", c.WorklistTimezone, err)
	}
	return loc, nil
}

// InTestMode reports whether WORKLIST_TEST_MODE=1, in which case binaries exit before
// dialing Redis or the invoice API.
func InTestMode() bool {
	return os.Getenv("WORKLIST_TEST_MODE") == "1"
}

// loadDotEnv never overrides variables already present in the environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
