// Package config provides Viper-based hierarchical configuration:
// defaults, then an optional config file, then SELLOUT_-prefixed
// environment variables. A .env file is honored for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Profiles struct {
		Directory string `mapstructure:"directory" yaml:"directory"`
	} `mapstructure:"profiles" yaml:"profiles"`

	Pipeline struct {
		ChunkSize            int `mapstructure:"chunk_size" yaml:"chunk_size"`
		MaxConcurrentChunks  int `mapstructure:"max_concurrent_chunks" yaml:"max_concurrent_chunks"`
		InlineThreshold      int `mapstructure:"inline_threshold" yaml:"inline_threshold"`
		PersistBatchSize     int `mapstructure:"persist_batch_size" yaml:"persist_batch_size"`
		PersistConcurrency   int `mapstructure:"persist_concurrency" yaml:"persist_concurrency"`
		PersistRetries       int `mapstructure:"persist_retries" yaml:"persist_retries"`
		PersistBackoffMillis int `mapstructure:"persist_backoff_millis" yaml:"persist_backoff_millis"`
	} `mapstructure:"pipeline" yaml:"pipeline"`

	Database struct {
		DSN string `mapstructure:"dsn" yaml:"-"` // never serialize credentials
	} `mapstructure:"database" yaml:"database"`

	Redis struct {
		Addr string `mapstructure:"addr" yaml:"addr"`
	} `mapstructure:"redis" yaml:"redis"`
}

// LoadEnv loads a .env file if present. Missing files are not an error.
func LoadEnv() {
	_ = godotenv.Load()
}

// InitializeConfig builds the configuration from defaults, an optional
// config.yaml and environment variables, then validates it.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.sellout-ingest")
	v.AddConfigPath(".sellout-ingest")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SELLOUT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// Credentials come from conventional unprefixed variables too.
	if err := v.BindEnv("database.dsn", "SELLOUT_DATABASE_DSN", "DATABASE_DSN"); err != nil {
		fmt.Printf("Warning: failed to bind DATABASE_DSN environment variable: %v\n", err)
	}
	if err := v.BindEnv("redis.addr", "SELLOUT_REDIS_ADDR", "REDIS_ADDR"); err != nil {
		fmt.Printf("Warning: failed to bind REDIS_ADDR environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("profiles.directory", "profiles")

	v.SetDefault("pipeline.chunk_size", 500)
	v.SetDefault("pipeline.max_concurrent_chunks", 4)
	v.SetDefault("pipeline.inline_threshold", 1000)
	v.SetDefault("pipeline.persist_batch_size", 250)
	v.SetDefault("pipeline.persist_concurrency", 2)
	v.SetDefault("pipeline.persist_retries", 3)
	v.SetDefault("pipeline.persist_backoff_millis", 200)

	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "localhost:6379")
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}
	if config.Pipeline.ChunkSize < 1 {
		return fmt.Errorf("pipeline.chunk_size must be at least 1, got: %d", config.Pipeline.ChunkSize)
	}
	if config.Pipeline.MaxConcurrentChunks < 1 {
		return fmt.Errorf("pipeline.max_concurrent_chunks must be at least 1, got: %d", config.Pipeline.MaxConcurrentChunks)
	}
	if config.Pipeline.InlineThreshold < 0 {
		return fmt.Errorf("pipeline.inline_threshold must not be negative, got: %d", config.Pipeline.InlineThreshold)
	}
	if config.Pipeline.PersistBatchSize < 1 {
		return fmt.Errorf("pipeline.persist_batch_size must be at least 1, got: %d", config.Pipeline.PersistBatchSize)
	}
	if config.Pipeline.PersistBatchSize > config.Pipeline.ChunkSize {
		return fmt.Errorf("pipeline.persist_batch_size (%d) must not exceed pipeline.chunk_size (%d)",
			config.Pipeline.PersistBatchSize, config.Pipeline.ChunkSize)
	}
	if config.Pipeline.PersistConcurrency < 1 {
		return fmt.Errorf("pipeline.persist_concurrency must be at least 1, got: %d", config.Pipeline.PersistConcurrency)
	}
	if config.Pipeline.PersistRetries < 0 {
		return fmt.Errorf("pipeline.persist_retries must not be negative, got: %d", config.Pipeline.PersistRetries)
	}
	return nil
}
