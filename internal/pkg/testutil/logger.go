package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/config"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/logger"
)

// SetupTestLogger sets up a logger for testing purposes.
func SetupTestLogger(t *testing.T) logger.Logger {
	t.Helper()

	settings := &config.LoggerSettings{
		LogLevel: config.LogLevelInfo,
		LogType:  config.LogTypeConsole,
	}

	log, err := logger.New(settings)
	require.NoError(t, err)

	return log
}
