package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Environment variables overriding file settings
const (
	EnvKdfLayout      = "KDF_LAYOUT"
	EnvKdfPointerSize = "KDF_POINTER_SIZE"
	EnvKdfAllocator   = "KDF_ALLOCATOR"
	EnvLogLevel       = "LOG_LEVEL"
)

// CLIConfig is the configuration of the kdf-params CLI
type CLIConfig struct {
	Logger LoggerSettings `mapstructure:"logger"`
	Kdf    KdfSettings    `mapstructure:"kdf"`
}

// DefaultCLIConfig returns console logging and the native layout with the default allocator
func DefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Logger: LoggerSettings{
			LogLevel: LogLevelInfo,
			LogType:  LogTypeConsole,
		},
		Kdf: KdfSettings{
			Layout:    "native",
			Allocator: "auto",
		},
	}
}

// InitializeCLIConfig loads the YAML file at path (if it exists) over the defaults,
// applies environment overrides and validates the result
func InitializeCLIConfig(path string) (*CLIConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults := DefaultCLIConfig()
	v.SetDefault("logger.log_level", defaults.Logger.LogLevel)
	v.SetDefault("logger.log_type", defaults.Logger.LogType)
	v.SetDefault("kdf.layout", defaults.Kdf.Layout)
	v.SetDefault("kdf.pointer_size", defaults.Kdf.PointerSize)
	v.SetDefault("kdf.allocator", defaults.Kdf.Allocator)

	envBindings := map[string]string{
		"kdf.layout":       EnvKdfLayout,
		"kdf.pointer_size": EnvKdfPointerSize,
		"kdf.allocator":    EnvKdfAllocator,
		"logger.log_level": EnvLogLevel,
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
		}
	}

	var cfg CLIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Logger.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger settings: %w", err)
	}
	if err := cfg.Kdf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kdf settings: %w", err)
	}

	return &cfg, nil
}
