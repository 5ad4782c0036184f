package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// ConfigPathEnv overrides the default config file location
	ConfigPathEnv = "LEADGEN_CONFIG_PATH"
	// DefaultPath is used when neither a flag nor ConfigPathEnv is set
	DefaultPath = "configs/leadgen-service/config.yaml"

	// StorageFile keeps CSV artifacts on the local filesystem
	StorageFile = "file"
	// StoragePostgres keeps CSV artifacts in a PostgreSQL table
	StoragePostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
	Search    SearchConfig    `yaml:"search"`
	LLM       LLMConfig       `yaml:"llm"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Worker    WorkerConfig    `yaml:"worker"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Reclaimer ReclaimerConfig `yaml:"reclaimer"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Events    EventsConfig    `yaml:"events"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"LEADGEN_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" env:"LOG_LEVEL"`
	Format       string `yaml:"format" env:"LOG_FORMAT"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment" env:"APP_ENV"`
}

// SearchConfig configures the Serper search client
type SearchConfig struct {
	APIKey       string        `yaml:"api_key" env:"SERPER_API_KEY"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	Country      string        `yaml:"country"`
	Language     string        `yaml:"language"`
	OrganicLimit int           `yaml:"organic_limit"`
	PlacesLimit  int           `yaml:"places_limit"`
}

// LLMConfig configures the chat completion client
type LLMConfig struct {
	APIKey      string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model       string        `yaml:"model" env:"OPENAI_MODEL"`
	BaseURL     string        `yaml:"base_url" env:"OPENAI_BASE_URL"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature float64       `yaml:"temperature"`
}

// JobsConfig holds job creation defaults
type JobsConfig struct {
	DefaultMaxResults int `yaml:"default_max_results"`
}

// WorkerConfig holds background job execution settings
type WorkerConfig struct {
	// MaxConcurrentJobs of 0 leaves job execution unbounded
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	PublishTimeout    time.Duration `yaml:"publish_timeout"`
}

// ArtifactsConfig selects where CSV artifacts live and for how long
type ArtifactsConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	Storage string        `yaml:"storage" env:"ARTIFACT_STORAGE"`
	Dir     string        `yaml:"dir" env:"ARTIFACT_DIR"`
}

// ReclaimerConfig controls the periodic expiry sweep
type ReclaimerConfig struct {
	Interval time.Duration `yaml:"interval"`
	// JobRetention of 0 keeps terminal jobs until their artifact expires
	JobRetention time.Duration `yaml:"job_retention"`
}

// MetricsConfig toggles the /metrics endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EventsConfig toggles job outcome publishing to RabbitMQ
type EventsConfig struct {
	Enabled bool `yaml:"enabled" env:"EVENTS_ENABLED"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST"`
	Port            int           `yaml:"port" env:"DB_PORT"`
	User            string        `yaml:"user" env:"DB_USER"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	Database        string        `yaml:"database" env:"DB_NAME"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" env:"RABBITMQ_HOST"`
	Port       int              `yaml:"port" env:"RABBITMQ_PORT"`
	User       string           `yaml:"user" env:"RABBITMQ_USER"`
	Password   string           `yaml:"password" env:"RABBITMQ_PASSWORD"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds the optional queue bound to the events exchange.
// An empty name skips the declaration.
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// DefaultConfigPath returns the config location from the environment or DefaultPath
func DefaultConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file, overlays environment variables and fills defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills zero values that have a sensible default
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.App.Name == "" {
		c.App.Name = "leadgen-service"
	}

	if c.Jobs.DefaultMaxResults == 0 {
		c.Jobs.DefaultMaxResults = 50
	}
	if c.Worker.ShutdownTimeout == 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}

	if c.Artifacts.TTL == 0 {
		c.Artifacts.TTL = time.Hour
	}
	if c.Artifacts.Storage == "" {
		c.Artifacts.Storage = StorageFile
	}
	if c.Reclaimer.Interval == 0 {
		c.Reclaimer.Interval = 5 * time.Minute
	}

	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange.Type == "" {
		c.RabbitMQ.Exchange.Type = "topic"
	}
	if c.RabbitMQ.Connection.RetryAttempts == 0 {
		c.RabbitMQ.Connection.RetryAttempts = 3
	}
}

// Validate checks the settings the service needs before it can start
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Search.APIKey == "" {
		return errors.New("search api_key is required (set SERPER_API_KEY)")
	}

	if c.LLM.APIKey == "" {
		return errors.New("llm api_key is required (set OPENAI_API_KEY)")
	}

	if c.Jobs.DefaultMaxResults < 1 {
		return fmt.Errorf("jobs default_max_results must be at least 1, got %d", c.Jobs.DefaultMaxResults)
	}

	if c.Worker.MaxConcurrentJobs < 0 {
		return fmt.Errorf("worker max_concurrent_jobs must not be negative, got %d", c.Worker.MaxConcurrentJobs)
	}

	if c.Artifacts.TTL < 0 {
		return errors.New("artifacts ttl must not be negative")
	}

	if c.Reclaimer.Interval <= 0 {
		return errors.New("reclaimer interval must be greater than 0")
	}

	switch c.Artifacts.Storage {
	case StorageFile:
	case StoragePostgres:
		if err := c.validateDatabase(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown artifacts storage %q (want %q or %q)", c.Artifacts.Storage, StorageFile, StoragePostgres)
	}

	if c.Events.Enabled {
		if err := c.validateRabbitMQ(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	return nil
}
