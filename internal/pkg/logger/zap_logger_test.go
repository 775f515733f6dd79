package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mode.log")
	l := NewIsolatedLogger(path)

	l.Info("ENGINE", "Mode changed", map[string]interface{}{"to": "future"})
	l.Debug("ENGINE", "dropped below file level", nil)
	require.NoError(t, l.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"module":"ENGINE"`)
	assert.Contains(t, lines[0], `"message":"Mode changed"`)
	assert.Contains(t, lines[0], `"level":"INFO"`)
}

func TestNopLogger(t *testing.T) {
	var l ILogger = NewNopLogger()
	l.Error("X", "ignored", map[string]interface{}{"error": "boom"})
	l.Warn("X", "ignored", nil)
	assert.NoError(t, l.Sync())
}
