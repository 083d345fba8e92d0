// Package config holds configuration types and loading logic for the nque
// command. The library itself takes an explicit nque.Config; this package
// only exists so the CLI can read the same knobs from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the nque command.
type Config struct {
	// DataDir is the directory holding the queue's backing store.
	DataDir  string         `yaml:"data_dir"`
	Log      LogConfig      `yaml:"log"`
	Queue    QueueConfig    `yaml:"queue"`
	Producer ProducerConfig `yaml:"producer"`
	Consumer ConsumerConfig `yaml:"consumer"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}

// QueueConfig sets the limits of the persisted queue. Both values must stay
// fixed for the lifetime of a given queue directory.
type QueueConfig struct {
	// ItemMaxBytes caps the size of a single item.
	ItemMaxBytes int `yaml:"item_max_bytes"`
	// ItemsMax caps how many items the queue holds.
	ItemsMax int `yaml:"items_max"`
}

// ProducerConfig tunes producer-side behaviour.
type ProducerConfig struct {
	// RetryIntervalMs paces put retries while the queue is full.
	RetryIntervalMs int `yaml:"retry_interval_ms"`
}

// ConsumerConfig tunes consumer-side behaviour.
type ConsumerConfig struct {
	// RequireLease enforces the single-consumer lease for get/remove.
	RequireLease bool `yaml:"require_lease"`
}

// Default returns a Config populated with the canonical defaults.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		Log: LogConfig{
			Level: "info",
		},
		Queue: QueueConfig{
			ItemMaxBytes: 20 * 1024,
			ItemsMax:     1000,
		},
		Producer: ProducerConfig{
			RetryIntervalMs: 100,
		},
		Consumer: ConsumerConfig{
			RequireLease: false,
		},
	}
}

// Load reads a YAML config file at path and overlays it on top of Default().
// If the file does not exist the default config is returned without error,
// making it easy to run nque with no config file at all.
//
// After loading the file, environment variables are applied as overrides:
//
//	NQUE_DATA_DIR   — sets data_dir
//	NQUE_LOG_LEVEL  — sets log.level
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variable overrides onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("NQUE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("NQUE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks that the config values are consistent and within
// acceptable ranges. It returns the first error found.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.Queue.ItemMaxBytes < 1 {
		return errors.New("queue.item_max_bytes must be at least 1")
	}
	if c.Queue.ItemsMax < 1 {
		return errors.New("queue.items_max must be at least 1")
	}
	if c.Producer.RetryIntervalMs < 1 {
		return errors.New("producer.retry_interval_ms must be at least 1")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
