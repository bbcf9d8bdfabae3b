// Package config loads process configuration from file and environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved process configuration.
type Config struct {
	// VaultKey seals and unseals stored credentials. Required for any
	// command that touches the credential store.
	VaultKey string

	// DatabasePath locates the sqlite file holding user storage configs.
	DatabasePath string

	// Workers bounds batch operation concurrency.
	Workers int

	// RateLimit caps provider calls per second during batch operations.
	// Zero disables limiting.
	RateLimit float64

	Logging LoggingConfig
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level   string
	Profile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "imaginestorage.db")
	v.SetDefault("workers", 8)
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")
}

// Load reads imaginestorage.yaml from the working directory when present,
// then applies IMAGINESTORAGE_* environment overrides. The vault key is
// environment-only so it never lands in a config file.
func Load(ctx context.Context) (*Config, error) {
	_ = ctx

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("imaginestorage")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("IMAGINESTORAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		// Environment-only on purpose: a vault_key entry in the config file
		// is ignored.
		VaultKey:     os.Getenv("IMAGINESTORAGE_VAULT_KEY"),
		DatabasePath: v.GetString("database.path"),
		Workers:      v.GetInt("workers"),
		RateLimit:    v.GetFloat64("rate_limit"),
		Logging: LoggingConfig{
			Level:   v.GetString("logging.level"),
			Profile: v.GetString("logging.profile"),
		},
	}

	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0, got %f", cfg.RateLimit)
	}
	return cfg, nil
}
