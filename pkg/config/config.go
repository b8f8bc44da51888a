package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Telegram TelegramConfig
	Store    StoreConfig
	Redis    RedisConfig
	Eventing EventingConfig
	HTTP     HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadStore parses only the file-store settings, for tools that never talk
// to Telegram.
func LoadStore() (*StoreConfig, error) {
	var cfg StoreConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing store config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYBOT_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"PAYBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYBOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type TelegramConfig struct {
	Token          string        `envconfig:"PAYBOT_TELEGRAM_TOKEN" required:"true"`
	PollTimeout    int           `envconfig:"PAYBOT_TELEGRAM_POLL_TIMEOUT" default:"30"`
	RequestTimeout time.Duration `envconfig:"PAYBOT_TELEGRAM_REQUEST_TIMEOUT" default:"15s"`
	WelcomePhoto   string        `envconfig:"PAYBOT_WELCOME_PHOTO" default:"img/logo.jpg"`
	Currency       string        `envconfig:"PAYBOT_CURRENCY" default:"XTR"`
	Debug          bool          `envconfig:"PAYBOT_TELEGRAM_DEBUG" default:"false"`
}

type StoreConfig struct {
	SettingsPath    string  `envconfig:"PAYBOT_SETTINGS_PATH" default:"settings.json"`
	CodesPath       string  `envconfig:"PAYBOT_CODES_PATH" default:"PASSCODE_codes.txt"`
	CatalogPath     string  `envconfig:"PAYBOT_CATALOG_PATH"`
	BootstrapAdmins []int64 `envconfig:"PAYBOT_BOOTSTRAP_ADMINS"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYBOT_REDIS_URL"`
	Address      string        `envconfig:"PAYBOT_REDIS_ADDR"`
	Password     string        `envconfig:"PAYBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PAYBOT_IDEMPOTENCY_TTL" default:"720h"`
	Workers        int           `envconfig:"PAYBOT_WORKERS" default:"8"`
	QueueSize      int           `envconfig:"PAYBOT_WORKER_QUEUE" default:"64"`
	SessionTTL     time.Duration `envconfig:"PAYBOT_SESSION_TTL" default:"1h"`
}

type HTTPConfig struct {
	Addr string `envconfig:"PAYBOT_HTTP_ADDR" default:":9090"`
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("%s must not be blank", EnvTelegramToken)
	}
	if c.Eventing.Workers <= 0 {
		return fmt.Errorf("%s must be positive", EnvWorkers)
	}
	if c.Eventing.QueueSize <= 0 {
		return fmt.Errorf("worker queue size must be positive")
	}
	if c.Telegram.RequestTimeout <= 0 {
		return fmt.Errorf("telegram request timeout must be positive")
	}
	return nil
}
