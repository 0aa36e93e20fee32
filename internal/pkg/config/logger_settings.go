package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Log level constants
const (
	LogLevelInfo     = "info"
	LogLevelDebug    = "debug"
	LogLevelError    = "error"
	LogLevelWarning  = "warning"
	LogLevelCritical = "critical"
)

// Log type constants
const (
	LogTypeConsole = "console"
	LogTypeFile    = "file"
)

// LoggerSettings holds configuration settings for logging, including log level, type and file path
type LoggerSettings struct {
	LogLevel   string `mapstructure:"log_level" validate:"required,oneof=info debug error warning critical"`
	LogType    string `mapstructure:"log_type" validate:"required,oneof=console file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Validate checks that all fields in LoggerSettings are valid.
// Rotation bounds are only checked for the file logger and every violation is reported.
func (s *LoggerSettings) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for LoggerSettings: %w", err)
	}

	if s.LogType != LogTypeFile {
		return nil
	}

	var errs []error
	if s.FilePath == "" {
		errs = append(errs, errors.New("file path is required for file logger"))
	}
	if err := checkRange("max size", s.MaxSize, 1, 100, "MB"); err != nil {
		errs = append(errs, err)
	}
	if err := checkRange("max backups", s.MaxBackups, 1, 10, "files"); err != nil {
		errs = append(errs, err)
	}
	if err := checkRange("max age", s.MaxAge, 1, 365, "days"); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func checkRange(name string, value, lo, hi int, unit string) error {
	if value < lo || value > hi {
		return fmt.Errorf("%s must be between %d and %d %s, got %d", name, lo, hi, unit, value)
	}
	return nil
}
