// Package config provides functionality for loading and managing application configuration.
//
// Settings are read from a YAML file with viper, overridden by environment variables and validated
// before use. Logger and KDF parameter-block settings live here so the CLI and the
// application services share one source of truth.
package config
