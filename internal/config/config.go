package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is recorded in presets and run history.
const Version = "2.0.0"

// ErrInvalidConfig is returned when the configuration cannot be loaded or is
// out of bounds.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the main configuration for the application.
type Config struct {
	InputDir   string   `mapstructure:"input"`
	OutputDir  string   `mapstructure:"output"`
	Watermark  string   `mapstructure:"watermark"`
	Preset     string   `mapstructure:"preset"`
	Workers    int      `mapstructure:"workers"`
	Verbose    bool     `mapstructure:"verbose"`
	Settings   Settings `mapstructure:"settings"`
	History    History  `mapstructure:"history"`
	Storage    Storage  `mapstructure:"storage"`
	Kafka      Kafka    `mapstructure:"kafka"`
	Retry      Retry    `mapstructure:"retry"`
	ConfigFile string   `mapstructure:"config"`
}

// History holds the run history database configuration.
type History struct {
	Path string `mapstructure:"path"` // SQLite file; empty disables history
}

// Storage holds configuration for publishing results to an S3-compatible bucket.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"` // empty disables publishing
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	Prefix     string `mapstructure:"prefix"`
	UploadAll  bool   `mapstructure:"upload_all"` // upload every output, not only the archive
}

// Kafka holds configuration for the progress event topic.
type Kafka struct {
	Topic   string   `mapstructure:"topic"`   // empty disables progress events
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("verbose", false)
	v.SetDefault("input", "")
	v.SetDefault("output", "")
	v.SetDefault("watermark", "")
	v.SetDefault("preset", "")
	v.SetDefault("config", "")

	for key, val := range DefaultSettings().Map() {
		v.SetDefault("settings."+key, val)
	}

	v.SetDefault("history.path", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket_name", "watermarked")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.upload_all", false)
	v.SetDefault("kafka.topic", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 500*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)
}

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML config file, a preset file, WATERMARKER_* environment variables
// and the flags the user actually set. Unknown keys are rejected.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("watermarker")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if path := v.GetString("preset"); path != "" {
		p, err := LoadPreset(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(map[string]any{"settings": p.Settings.Map()}); err != nil {
			return nil, fmt.Errorf("%w: failed to apply preset: %v", ErrInvalidConfig, err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the application-level settings. Paths are checked by the
// batch processor, which owns the input/output relationship.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if _, err := c.Settings.Placement(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Settings.Output(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Kafka.Topic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka topic set without brokers", ErrInvalidConfig)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("%w: retry attempts must be at least 1", ErrInvalidConfig)
	}
	return nil
}
