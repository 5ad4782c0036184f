package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears a variable for the test and restores it afterwards
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func clearOverlay(t *testing.T) {
	unsetEnv(t, "LEADGEN_PORT", "LOG_LEVEL", "LOG_FORMAT", "APP_ENV",
		"SERPER_API_KEY", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"ARTIFACT_STORAGE", "ARTIFACT_DIR", "EVENTS_ENABLED",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"RABBITMQ_HOST", "RABBITMQ_PORT", "RABBITMQ_USER", "RABBITMQ_PASSWORD")
}

func TestLoad(t *testing.T) {
	clearOverlay(t)

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
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			assert.Equal(t, "leadgen-test", cfg.App.Name)
			assert.Equal(t, "serper-from-file", cfg.Search.APIKey)
			assert.Equal(t, 30, cfg.Search.OrganicLimit)
			assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
			assert.Equal(t, 40, cfg.Jobs.DefaultMaxResults)
			assert.Equal(t, 4, cfg.Worker.MaxConcurrentJobs)
			assert.Equal(t, 30*time.Minute, cfg.Artifacts.TTL)
			assert.Equal(t, "/tmp/leadgen-test", cfg.Artifacts.Dir)
			assert.Equal(t, 24*time.Hour, cfg.Reclaimer.JobRetention)
			assert.True(t, cfg.Metrics.Enabled)
			assert.False(t, cfg.Events.Enabled)
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	clearOverlay(t)

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Worker.ShutdownTimeout)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "topic", cfg.RabbitMQ.Exchange.Type)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearOverlay(t)
	t.Setenv("SERPER_API_KEY", "serper-from-env")
	t.Setenv("OPENAI_API_KEY", "openai-from-env")
	t.Setenv("LEADGEN_PORT", "9090")
	t.Setenv("DB_PASSWORD", "s3cret")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "serper-from-env", cfg.Search.APIKey)
	assert.Equal(t, "openai-from-env", cfg.LLM.APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model, "unset variables keep the file value")
}

func TestLoad_BadEnvironmentValue(t *testing.T) {
	clearOverlay(t)
	t.Setenv("LEADGEN_PORT", "not-a-port")

	_, err := Load("testdata/valid_config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse environment")
}

func TestDefaultConfigPath(t *testing.T) {
	unsetEnv(t, ConfigPathEnv)
	assert.Equal(t, DefaultPath, DefaultConfigPath())

	t.Setenv(ConfigPathEnv, "/etc/leadgen.yaml")
	assert.Equal(t, "/etc/leadgen.yaml", DefaultConfigPath())
}

func validConfig() *Config {
	cfg := &Config{
		Search: SearchConfig{APIKey: "serper"},
		LLM:    LLMConfig{APIKey: "openai"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "leadgen",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "leadgen.events"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			errString: "invalid server port",
		},
		{
			name:      "missing serper key",
			mutate:    func(c *Config) { c.Search.APIKey = "" },
			errString: "SERPER_API_KEY",
		},
		{
			name:      "missing openai key",
			mutate:    func(c *Config) { c.LLM.APIKey = "" },
			errString: "OPENAI_API_KEY",
		},
		{
			name:      "zero default max results",
			mutate:    func(c *Config) { c.Jobs.DefaultMaxResults = 0 },
			errString: "default_max_results",
		},
		{
			name:      "negative concurrency",
			mutate:    func(c *Config) { c.Worker.MaxConcurrentJobs = -1 },
			errString: "max_concurrent_jobs",
		},
		{
			name:      "unknown storage",
			mutate:    func(c *Config) { c.Artifacts.Storage = "s3" },
			errString: "unknown artifacts storage",
		},
		{
			name: "file storage ignores database",
			mutate: func(c *Config) {
				c.Database = DatabaseConfig{}
			},
		},
		{
			name: "postgres storage needs database host",
			mutate: func(c *Config) {
				c.Artifacts.Storage = StoragePostgres
				c.Database.Host = ""
			},
			errString: "database host is required",
		},
		{
			name: "postgres storage needs database name",
			mutate: func(c *Config) {
				c.Artifacts.Storage = StoragePostgres
				c.Database.Database = ""
			},
			errString: "database name is required",
		},
		{
			name: "events disabled ignores rabbitmq",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{}
			},
		},
		{
			name: "events need rabbitmq host",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.RabbitMQ.Host = ""
			},
			errString: "rabbitmq host is required",
		},
		{
			name: "events need exchange name",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.RabbitMQ.Exchange.Name = ""
			},
			errString: "rabbitmq exchange name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	clearOverlay(t)

	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("postgres storage with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/postgres_missing_database.yaml")
		require.NoError(t, err)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
