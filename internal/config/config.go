package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Profile  ProfileConfig  `yaml:"profile"`
	LogLevel string         `yaml:"log_level"`
	UserID   string         `yaml:"user_id"`
}

type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
}

// RetryConfig controls retries of failed requests. A negative MaxRetries
// disables retrying.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	DSN      string         `yaml:"dsn"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// DataSource returns the connection string for the configured driver.
func (s StoreConfig) DataSource() string {
	if s.Driver == "postgres" {
		if s.DSN != "" {
			return s.DSN
		}
		return s.Postgres.DSN()
	}
	if s.DSN != "" {
		return s.DSN
	}
	return s.Path
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig configures the asset and profile cache. An empty Addr keeps
// assets in process only.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	AssetTTL time.Duration `yaml:"asset_ttl"`
	LRUSize  int           `yaml:"lru_size"`
}

// RabbitMQConfig configures change events. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type RefreshConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
	Prefetch   int           `yaml:"prefetch"`
	Contexts   []string      `yaml:"contexts"`
}

type ProfileConfig struct {
	// UploadURL receives profile photos as multipart uploads.
	UploadURL string `yaml:"upload_url"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://api.rawg.io/api"
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = 20
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 20 * time.Second
	}
	if c.API.Retry.MaxRetries == 0 {
		c.API.Retry.MaxRetries = 3
	}
	if c.API.Retry.InitialBackoff == 0 {
		c.API.Retry.InitialBackoff = 500 * time.Millisecond
	}
	if c.API.Retry.MaxBackoff == 0 {
		c.API.Retry.MaxBackoff = 10 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite3"
	}
	if c.Store.Path == "" {
		c.Store.Path = "gamedex.db"
	}
	if c.Store.Postgres.Port == 0 {
		c.Store.Postgres.Port = 5432
	}
	if c.Store.Postgres.SSLMode == "" {
		c.Store.Postgres.SSLMode = "disable"
	}
	if c.Redis.AssetTTL == 0 {
		c.Redis.AssetTTL = 24 * time.Hour
	}
	if c.Redis.LRUSize == 0 {
		c.Redis.LRUSize = 256
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "gamedex"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "changes"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "gamedex_changes"
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 15 * time.Minute
	}
	if c.Refresh.RunTimeout == 0 {
		c.Refresh.RunTimeout = 5 * time.Minute
	}
	if c.Refresh.Prefetch == 0 {
		c.Refresh.Prefetch = 10
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.UserID == "" {
		c.UserID = "local"
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.API.PageSize < 0 {
		return fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize)
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive, got %s", c.Refresh.Interval)
	}
	if c.Refresh.RunTimeout <= 0 {
		return fmt.Errorf("refresh.run_timeout must be positive, got %s", c.Refresh.RunTimeout)
	}
	return nil
}
