package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"gopkg.in/yaml.v3"
)

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver    string `yaml:"driver"`
	Table     string `yaml:"table"`
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	Endpoint  string `yaml:"endpoint"`
}

// Config holds all application configuration.
type Config struct {
	Port         int               `yaml:"port"`
	Region       string            `yaml:"region"`
	Endpoint     string            `yaml:"endpoint"`
	MaxTokens    int               `yaml:"max_tokens"`
	HistoryLimit int               `yaml:"history_limit"`
	LogLevel     string            `yaml:"log_level"`
	LogFormat    string            `yaml:"log_format"`
	Store        StoreConfig       `yaml:"store"`
	Models       map[string]string `yaml:"models"`
}

func defaults() Config {
	return Config{
		Port:         8080,
		Region:       "ap-northeast-1",
		MaxTokens:    1000,
		HistoryLimit: 5,
		LogLevel:     "info",
		LogFormat:    "json",
		Store: StoreConfig{
			Driver: "dynamodb",
			Table:  "bedrock-poc-flaskr",
			Path:   "data/history.db",
		},
	}
}

// Load reads configuration from a YAML file (if path is non-empty), then
// applies PROMPTDECK_* environment overrides. An empty path returns defaults
// plus env overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"PROMPTDECK_PORT", &cfg.Port},
		{"PROMPTDECK_MAX_TOKENS", &cfg.MaxTokens},
		{"PROMPTDECK_HISTORY_LIMIT", &cfg.HistoryLimit},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", e.key, v, err)
		}
		*e.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"PROMPTDECK_REGION", &cfg.Region},
		{"PROMPTDECK_ENDPOINT", &cfg.Endpoint},
		{"PROMPTDECK_LOG_LEVEL", &cfg.LogLevel},
		{"PROMPTDECK_LOG_FORMAT", &cfg.LogFormat},
		{"PROMPTDECK_STORE_DRIVER", &cfg.Store.Driver},
		{"PROMPTDECK_STORE_TABLE", &cfg.Store.Table},
		{"PROMPTDECK_STORE_PATH", &cfg.Store.Path},
		{"PROMPTDECK_STORE_REDIS_ADDR", &cfg.Store.RedisAddr},
		{"PROMPTDECK_STORE_ENDPOINT", &cfg.Store.Endpoint},
	}
	for _, e := range strs {
		if v := os.Getenv(e.key); v != "" {
			*e.dst = v
		}
	}
	return nil
}

func (c Config) validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("config: history_limit must be positive, got %d", c.HistoryLimit)
	}
	if c.Store.Table == "" {
		return fmt.Errorf("config: store.table is required")
	}
	return nil
}

// AWS loads the shared AWS configuration for the configured region. Credentials
// resolve through the default chain and are not checked here.
func (c Config) AWS(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("config: load aws config: %w", err)
	}
	return cfg, nil
}
