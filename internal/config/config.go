package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration.
// It is constructed once at startup and passed by reference; nothing
// reads ambient environment state at call sites.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Queue      QueueConfig      `yaml:"queue"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
	Worker     WorkerConfig     `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
// The password is taken from the DB_PASSWORD environment variable.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"-"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// QueueConfig holds SQS queue configuration. Credentials come from the
// AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY environment variables, never
// from the config file.
type QueueConfig struct {
	Region            string        `yaml:"region"`
	URL               string        `yaml:"url"`
	DeadLetterURL     string        `yaml:"dead_letter_url"`
	Endpoint          string        `yaml:"endpoint"`
	WaitTime          time.Duration `yaml:"wait_time"`
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
	MaxReceiveCount   int           `yaml:"max_receive_count"`
	AccessKeyID       string        `yaml:"-"`
	SecretAccessKey   string        `yaml:"-"`
}

// GenerationConfig holds the content generation pipeline endpoint
type GenerationConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency         int           `yaml:"concurrency"`
	BatchSize           int           `yaml:"batch_size"`
	JobTimeout          time.Duration `yaml:"job_timeout"`
	VisibilityHeartbeat time.Duration `yaml:"visibility_heartbeat"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
	MetricsPort         int           `yaml:"metrics_port"`
}

// SettingStatus reports whether a named setting is present, without
// exposing its value
type SettingStatus struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// SettingsStatus lists the queue settings by name and whether each one
// is present. Secret values are never included.
func (c *QueueConfig) SettingsStatus() []SettingStatus {
	return []SettingStatus{
		{Name: "queue.region", Present: c.Region != ""},
		{Name: "queue.url", Present: c.URL != ""},
		{Name: "queue.dead_letter_url", Present: c.DeadLetterURL != ""},
		{Name: "AWS_ACCESS_KEY_ID", Present: c.AccessKeyID != ""},
		{Name: "AWS_SECRET_ACCESS_KEY", Present: c.SecretAccessKey != ""},
	}
}

// IsConfigured reports whether every required queue setting is present
func (c *QueueConfig) IsConfigured() bool {
	return c.Region != "" && c.URL != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Load reads and parses the configuration file, then overlays secrets
// from the environment
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.Database.Password = os.Getenv("DB_PASSWORD")
	config.Queue.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	config.Queue.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Queue.WaitTime <= 0 {
		c.Queue.WaitTime = 20 * time.Second
	}
	if c.Queue.VisibilityTimeout <= 0 {
		c.Queue.VisibilityTimeout = 2 * time.Minute
	}
	if c.Queue.MaxReceiveCount <= 0 {
		c.Queue.MaxReceiveCount = 5
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	if c.Worker.BatchSize <= 0 {
		c.Worker.BatchSize = c.Worker.Concurrency
	}
}

// ValidateAPIConfig checks the settings the API service depends on.
// Queue settings are deliberately not validated here: the API service
// runs degraded without them, and its diagnostics endpoints report
// which ones are missing.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateDatabase()
}

// ValidateWorkerConfig checks the settings the worker service depends on
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateQueue(); err != nil {
		return err
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.VisibilityHeartbeat <= 0 {
		return fmt.Errorf("worker visibility_heartbeat must be greater than 0")
	}

	if c.Worker.VisibilityHeartbeat >= c.Queue.VisibilityTimeout {
		return fmt.Errorf("worker visibility_heartbeat (%s) must be shorter than queue visibility_timeout (%s)",
			c.Worker.VisibilityHeartbeat, c.Queue.VisibilityTimeout)
	}

	if c.Generation.BaseURL == "" {
		return fmt.Errorf("generation base_url is required")
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

func (c *Config) validateQueue() error {
	for _, s := range c.Queue.SettingsStatus() {
		if s.Name == "queue.dead_letter_url" {
			continue
		}
		if !s.Present {
			return fmt.Errorf("queue setting missing: %s", s.Name)
		}
	}
	return nil
}
