package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_PASSWORD", "pg-secret")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "aws-secret")

	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "content_jobs", cfg.Database.Database)
				assert.Equal(t, "us-east-1", cfg.Queue.Region)
				assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789012/content-jobs", cfg.Queue.URL)
				assert.Equal(t, "content-dispatcher", cfg.App.Name)
				assert.Equal(t, 2, cfg.Worker.Concurrency)

				// Secrets are overlaid from the environment, not the file
				assert.Equal(t, "pg-secret", cfg.Database.Password)
				assert.Equal(t, "AKIATEST", cfg.Queue.AccessKeyID)
				assert.Equal(t, "aws-secret", cfg.Queue.SecretAccessKey)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "aws-secret")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	// Values present in the file are not overridden
	assert.Equal(t, 20*time.Second, cfg.Queue.WaitTime)
	assert.Equal(t, 5, cfg.Queue.MaxReceiveCount)
	assert.Equal(t, 4, cfg.Worker.BatchSize)
}

func validTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "content_jobs",
		},
		Queue: QueueConfig{
			Region:            "us-east-1",
			URL:               "https://sqs.us-east-1.amazonaws.com/123456789012/content-jobs",
			AccessKeyID:       "AKIATEST",
			SecretAccessKey:   "aws-secret",
			VisibilityTimeout: 2 * time.Minute,
		},
		Generation: GenerationConfig{BaseURL: "http://localhost:8000"},
		Worker: WorkerConfig{
			Concurrency:         1,
			JobTimeout:          90 * time.Second,
			VisibilityHeartbeat: 45 * time.Second,
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:   "missing queue settings do not fail API validation",
			mutate: func(c *Config) { c.Queue = QueueConfig{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "missing queue region",
			mutate:    func(c *Config) { c.Queue.Region = "" },
			wantErr:   true,
			errString: "queue setting missing: queue.region",
		},
		{
			name:      "missing queue url",
			mutate:    func(c *Config) { c.Queue.URL = "" },
			wantErr:   true,
			errString: "queue setting missing: queue.url",
		},
		{
			name:      "missing aws access key",
			mutate:    func(c *Config) { c.Queue.AccessKeyID = "" },
			wantErr:   true,
			errString: "queue setting missing: AWS_ACCESS_KEY_ID",
		},
		{
			name:      "missing aws secret key",
			mutate:    func(c *Config) { c.Queue.SecretAccessKey = "" },
			wantErr:   true,
			errString: "queue setting missing: AWS_SECRET_ACCESS_KEY",
		},
		{
			name:   "missing dead letter url is allowed",
			mutate: func(c *Config) { c.Queue.DeadLetterURL = "" },
		},
		{
			name:      "zero job timeout",
			mutate:    func(c *Config) { c.Worker.JobTimeout = 0 },
			wantErr:   true,
			errString: "job_timeout must be greater than 0",
		},
		{
			name:      "zero visibility heartbeat",
			mutate:    func(c *Config) { c.Worker.VisibilityHeartbeat = 0 },
			wantErr:   true,
			errString: "visibility_heartbeat must be greater than 0",
		},
		{
			name:      "heartbeat longer than visibility timeout",
			mutate:    func(c *Config) { c.Worker.VisibilityHeartbeat = 3 * time.Minute },
			wantErr:   true,
			errString: "must be shorter than queue visibility_timeout",
		},
		{
			name:      "missing generation base url",
			mutate:    func(c *Config) { c.Generation.BaseURL = "" },
			wantErr:   true,
			errString: "generation base_url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestQueueConfig_SettingsStatus(t *testing.T) {
	cfg := &QueueConfig{
		Region:      "us-east-1",
		URL:         "https://sqs.us-east-1.amazonaws.com/123456789012/content-jobs",
		AccessKeyID: "AKIATEST",
	}

	status := cfg.SettingsStatus()

	byName := make(map[string]bool, len(status))
	for _, s := range status {
		byName[s.Name] = s.Present
	}

	assert.True(t, byName["queue.region"])
	assert.True(t, byName["queue.url"])
	assert.False(t, byName["queue.dead_letter_url"])
	assert.True(t, byName["AWS_ACCESS_KEY_ID"])
	assert.False(t, byName["AWS_SECRET_ACCESS_KEY"])

	assert.False(t, cfg.IsConfigured())

	cfg.SecretAccessKey = "aws-secret"
	assert.True(t, cfg.IsConfigured())
}
