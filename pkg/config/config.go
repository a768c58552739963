package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for otapublish
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Hash    HashConfig    `mapstructure:"hash"`
	Confirm ConfirmConfig `mapstructure:"confirm"`
	Store   StoreConfig   `mapstructure:"store"`
}

// APIConfig holds settings for the GraphQL asset store API
type APIConfig struct {
	URL               string        `mapstructure:"url"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// UploadConfig holds negotiation and transfer settings
type UploadConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// HashConfig controls parallel file hashing
type HashConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ConfirmConfig controls the existence confirmation loop.
// A zero Timeout disables the bound and waits until every asset is visible.
type ConfirmConfig struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Step         time.Duration `mapstructure:"step"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the asset store backend
type StoreConfig struct {
	Backend string   `mapstructure:"backend"` // "graphql" or "s3"
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds settings for an S3-compatible bucket used directly as the asset store
type S3Config struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Bucket     string        `mapstructure:"bucket"`
	Region     string        `mapstructure:"region"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	Secure     bool          `mapstructure:"secure"`
	Prefix     string        `mapstructure:"prefix"`
	AssetLimit int           `mapstructure:"asset_limit"`
	PolicyTTL  time.Duration `mapstructure:"policy_ttl"`
}

const (
	BackendGraphQL = "graphql"
	BackendS3      = "s3"
)

var defaultConfig = Config{
	API: APIConfig{
		URL:               "https://api.expo.dev/graphql",
		Timeout:           parseDurationDefault("60s"),
		RequestsPerSecond: 10,
	},
	Upload: UploadConfig{
		Concurrency: 15,
		BatchSize:   100,
		MaxAttempts: 5,
		Timeout:     parseDurationDefault("10m"),
	},
	Hash: HashConfig{
		Concurrency: 0,
	},
	Confirm: ConfirmConfig{
		InitialDelay: parseDurationDefault("1s"),
		Step:         parseDurationDefault("1s"),
		MaxDelay:     parseDurationDefault("5s"),
		Timeout:      parseDurationDefault("15m"),
	},
	Store: StoreConfig{
		Backend: BackendGraphQL,
		S3: S3Config{
			Secure:     true,
			Prefix:     "assets",
			AssetLimit: 2000,
			PolicyTTL:  parseDurationDefault("15m"),
		},
	},
}

// Default returns a copy of the built-in configuration
func Default() Config {
	return defaultConfig
}

// LoadConfig loads configuration from defaults, config files and environment.
// configFile, when non-empty, replaces the search path lookup.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("otapublish")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if configDir, err := GetConfigDir(); err == nil {
			v.AddConfigPath(configDir)
		}
	}

	v.SetEnvPrefix("OTAPUBLISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// An explicit file must exist; search path misses fall back to defaults
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	config := Default()
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", defaultConfig.API.URL)
	v.SetDefault("api.token", defaultConfig.API.Token)
	v.SetDefault("api.timeout", defaultConfig.API.Timeout)
	v.SetDefault("api.requests_per_second", defaultConfig.API.RequestsPerSecond)

	v.SetDefault("upload.concurrency", defaultConfig.Upload.Concurrency)
	v.SetDefault("upload.batch_size", defaultConfig.Upload.BatchSize)
	v.SetDefault("upload.max_attempts", defaultConfig.Upload.MaxAttempts)
	v.SetDefault("upload.timeout", defaultConfig.Upload.Timeout)

	v.SetDefault("hash.concurrency", defaultConfig.Hash.Concurrency)

	v.SetDefault("confirm.initial_delay", defaultConfig.Confirm.InitialDelay)
	v.SetDefault("confirm.step", defaultConfig.Confirm.Step)
	v.SetDefault("confirm.max_delay", defaultConfig.Confirm.MaxDelay)
	v.SetDefault("confirm.timeout", defaultConfig.Confirm.Timeout)

	v.SetDefault("store.backend", defaultConfig.Store.Backend)
	v.SetDefault("store.s3.endpoint", defaultConfig.Store.S3.Endpoint)
	v.SetDefault("store.s3.bucket", defaultConfig.Store.S3.Bucket)
	v.SetDefault("store.s3.region", defaultConfig.Store.S3.Region)
	v.SetDefault("store.s3.access_key", defaultConfig.Store.S3.AccessKey)
	v.SetDefault("store.s3.secret_key", defaultConfig.Store.S3.SecretKey)
	v.SetDefault("store.s3.secure", defaultConfig.Store.S3.Secure)
	v.SetDefault("store.s3.prefix", defaultConfig.Store.S3.Prefix)
	v.SetDefault("store.s3.asset_limit", defaultConfig.Store.S3.AssetLimit)
	v.SetDefault("store.s3.policy_ttl", defaultConfig.Store.S3.PolicyTTL)
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Upload.Concurrency <= 0 {
		return fmt.Errorf("upload.concurrency must be positive, got %d", c.Upload.Concurrency)
	}
	if c.Upload.BatchSize <= 0 {
		return fmt.Errorf("upload.batch_size must be positive, got %d", c.Upload.BatchSize)
	}
	if c.Upload.MaxAttempts <= 0 {
		return fmt.Errorf("upload.max_attempts must be positive, got %d", c.Upload.MaxAttempts)
	}
	if c.Confirm.InitialDelay < 0 || c.Confirm.Step < 0 || c.Confirm.MaxDelay < 0 {
		return fmt.Errorf("confirm delays must not be negative")
	}
	if c.Confirm.Timeout < 0 {
		return fmt.Errorf("confirm.timeout must not be negative")
	}
	switch c.Store.Backend {
	case BackendGraphQL:
		if c.API.URL == "" {
			return fmt.Errorf("api.url is required for the %s backend", BackendGraphQL)
		}
	case BackendS3:
		if c.Store.S3.Endpoint == "" || c.Store.S3.Bucket == "" {
			return fmt.Errorf("store.s3.endpoint and store.s3.bucket are required for the %s backend", BackendS3)
		}
	default:
		return fmt.Errorf("unknown store.backend %q (expected %s or %s)", c.Store.Backend, BackendGraphQL, BackendS3)
	}
	return nil
}

// parseDurationDefault is a helper to create default duration values from string literal
func parseDurationDefault(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// GetHome returns the otapublish home directory
func GetHome() (string, error) {
	if home := os.Getenv("OTAPUBLISH_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".otapublish"), nil
}

// GetConfigDir returns the config directory without creating it
func GetConfigDir() (string, error) {
	homeDir, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, "config"), nil
}
