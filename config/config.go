package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Feedflow FeedflowConfig `yaml:"feedflow"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Channels ChannelsConfig `yaml:"channels"`
	Replay   ReplayConfig   `yaml:"replay"`
	Packer   PackerConfig   `yaml:"packer"`
	Emitter  EmitterConfig  `yaml:"emitter"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type FeedflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type MetricsConfig struct {
	ChannelSize bool   `yaml:"channel_size"`
	Packer      bool   `yaml:"packer"`
	Listen      string `yaml:"listen"`
}

type ChannelsConfig struct {
	UpdateBuffer int `yaml:"update_buffer"`
	PackedBuffer int `yaml:"packed_buffer"`
}

// ReplayConfig drives the replay reader that feeds recorded updates into
// the pipeline.
type ReplayConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RatePerSecond int    `yaml:"rate_per_second"`
	Burst         int    `yaml:"burst"`
	Loop          bool   `yaml:"loop"`
}

// PackerConfig controls how domain updates are batched into envelopes.
type PackerConfig struct {
	MaxWorkers   int           `yaml:"max_workers"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	Encoding     string        `yaml:"encoding"`
	Parsed       bool          `yaml:"parsed"`
	Verify       bool          `yaml:"verify"`
}

type EmitterConfig struct {
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

type LoggingConfig struct {
	Level         string                 `yaml:"level"`
	Format        string                 `yaml:"format"`
	Output        string                 `yaml:"output"`
	MaxAge        int                    `yaml:"max_age"`
	Fields        map[string]interface{} `yaml:"fields"`
	DashboardName string                 `yaml:"dashboard_name"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Metrics: MetricsConfig{
			ChannelSize: true,
			Packer:      true,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides for paths that differ per deployment
	if v := os.Getenv("REPLAY_FILE"); v != "" {
		config.Replay.Path = strings.TrimSpace(v)
	}
	if v := os.Getenv("EMITTER_OUTPUT"); v != "" {
		config.Emitter.Output = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Feedflow.Name == "" {
		return fmt.Errorf("feedflow.name is required")
	}

	if cfg.Feedflow.Version == "" {
		return fmt.Errorf("feedflow.version is required")
	}

	if cfg.Channels.UpdateBuffer <= 0 {
		return fmt.Errorf("channels.update_buffer must be greater than 0")
	}
	if cfg.Channels.PackedBuffer <= 0 {
		return fmt.Errorf("channels.packed_buffer must be greater than 0")
	}

	if cfg.Replay.Enabled {
		if cfg.Replay.Path == "" {
			return fmt.Errorf("replay.path is required when replay is enabled")
		}
		if cfg.Replay.RatePerSecond <= 0 {
			return fmt.Errorf("replay.rate_per_second must be greater than 0")
		}
	}

	if cfg.Packer.MaxWorkers <= 0 {
		return fmt.Errorf("packer.max_workers must be greater than 0")
	}
	if cfg.Packer.BatchSize <= 0 {
		return fmt.Errorf("packer.batch_size must be greater than 0")
	}
	if cfg.Packer.BatchTimeout <= 0 {
		return fmt.Errorf("packer.batch_timeout must be greater than 0")
	}
	switch cfg.Packer.Encoding {
	case "hex", "base64":
	default:
		return fmt.Errorf("packer.encoding must be either 'hex' or 'base64'")
	}

	if cfg.Emitter.Output == "" {
		return fmt.Errorf("emitter.output is required ('stdout' or a file path)")
	}

	return nil
}
