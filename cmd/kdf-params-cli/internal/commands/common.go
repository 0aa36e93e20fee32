package commands

import (
	"fmt"
	"os"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/config"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/logger"
)

// EnvConfigFile names the YAML configuration file read by the CLI
const EnvConfigFile = "KDF_CONFIG_FILE"

func loadConfig() (*config.CLIConfig, error) {
	cfg, err := config.InitializeCLIConfig(os.Getenv(EnvConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func setupLogger(settings *config.LoggerSettings) (logger.Logger, error) {
	if err := logger.InitLogger(settings); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	loggerInstance, err := logger.GetLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get logger instance: %w", err)
	}

	return loggerInstance, nil
}
