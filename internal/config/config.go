// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all settings loaded via Viper.
type Config struct {
	Download DownloadConfig `mapstructure:"download"`
	Files    FilesConfig    `mapstructure:"files"`
	Document DocumentConfig `mapstructure:"document"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DownloadConfig governs the fetch executors and the politeness scheduler.
type DownloadConfig struct {
	Threads        int     `mapstructure:"threads"`
	SleepSeconds   int     `mapstructure:"sleep_seconds"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	MaxRPS         float64 `mapstructure:"max_rps"`
}

// FilesConfig governs the file batch pipeline.
type FilesConfig struct {
	Workers int `mapstructure:"workers"`
}

// DocumentConfig bounds accepted documents and the extraction deadline.
type DocumentConfig struct {
	MinSize        int `mapstructure:"min_size"`
	MaxSize        int `mapstructure:"max_size"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// OutputConfig controls sharding and generated file names.
type OutputConfig struct {
	ShardSize      int `mapstructure:"shard_size"`
	FilenameLength int `mapstructure:"filename_length"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the optional metrics endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRAFILATURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("download.threads", 5)
	v.SetDefault("download.sleep_seconds", 5)
	v.SetDefault("download.timeout_seconds", 30)
	v.SetDefault("download.user_agent", "trafilatura-go/1.0")
	v.SetDefault("download.max_rps", 0)
	v.SetDefault("files.workers", 4)
	v.SetDefault("document.min_size", 10)
	v.SetDefault("document.max_size", 20_000_000)
	v.SetDefault("document.timeout_seconds", 30)
	v.SetDefault("output.shard_size", 1000)
	v.SetDefault("output.filename_length", 8)
	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Download.Threads <= 0 {
		return fmt.Errorf("download.threads must be > 0")
	}
	if c.Download.SleepSeconds < 0 {
		return fmt.Errorf("download.sleep_seconds must be >= 0")
	}
	if c.Files.Workers <= 0 {
		return fmt.Errorf("files.workers must be > 0")
	}
	if c.Document.MaxSize > 0 && c.Document.MinSize > c.Document.MaxSize {
		return fmt.Errorf("document.min_size must not exceed document.max_size")
	}
	if c.Output.ShardSize <= 0 {
		return fmt.Errorf("output.shard_size must be > 0")
	}
	if c.Output.FilenameLength <= 0 {
		return fmt.Errorf("output.filename_length must be > 0")
	}
	return nil
}

// Sleep returns the politeness interval as a duration.
func (c Config) Sleep() time.Duration {
	return time.Duration(c.Download.SleepSeconds) * time.Second
}

// FetchTimeout returns the per-request fetch budget.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Download.TimeoutSeconds) * time.Second
}

// ProcessingTimeout returns the per-document extraction budget.
func (c Config) ProcessingTimeout() time.Duration {
	return time.Duration(c.Document.TimeoutSeconds) * time.Second
}
