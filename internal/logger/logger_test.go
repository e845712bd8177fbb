package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myo.logs")

	l, err := NewLogger(path, "info")
	require.NoError(t, err)
	l.Info("[test] hello", zap.Int("channel", 3))
	l.Debug("[test] hidden")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"[test] hello"`)
	assert.Contains(t, string(b), `"channel":3`)
	assert.NotContains(t, string(b), "hidden")
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(filepath.Join(t.TempDir(), "x.logs"), "loud")
	assert.Error(t, err)
}

func TestNewLoggerBadPath(t *testing.T) {
	_, err := NewLogger(filepath.Join(t.TempDir(), "missing", "x.logs"), "info")
	assert.Error(t, err)
}
