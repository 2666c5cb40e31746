package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	log, err := New("warn", "console", FileConfig{})
	require.NoError(t, err)

	assert.False(t, log.Enabled(zapcore.InfoLevel))
	assert.True(t, log.Enabled(zapcore.ErrorLevel))

	log.SetLevel(zapcore.DebugLevel)
	assert.True(t, log.Enabled(zapcore.DebugLevel))
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "json", FileConfig{})
	assert.Error(t, err)

	_, err = New("info", "xml", FileConfig{})
	assert.Error(t, err)
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "banco.log")

	log, err := New("info", "json", FileConfig{Path: path})
	require.NoError(t, err)
	log.Info("credit recorded", zap.String("user", "ana"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"msg":"credit recorded"`)
	assert.Contains(t, line, `"user":"ana"`)
}
