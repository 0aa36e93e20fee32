//go:build unit
// +build unit

package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/config"
)

func TestNewFileLogger_WritesJSONLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "kdf.log")

	log := NewFileLogger(config.LogLevelInfo, logPath, 10, 3, 28)
	require.NotNil(t, log)

	log.Debug("debug message")
	log.Info("info message")
	log.With("params_id", "0b7e").Warn("warn message")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2, "debug is below the configured level")

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "info message", first["msg"])
	assert.Equal(t, "WARN", second["level"])
	assert.Equal(t, "0b7e", second["params_id"])
}
