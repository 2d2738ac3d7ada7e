package config_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/ccdwallet/internal/config"
)

func readLogFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	return data
}

func logLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(readLogFile(t, path))), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected config.LogLevel
	}{
		{"off", config.LogLevelOff},
		{"none", config.LogLevelOff},
		{"error", config.LogLevelError},
		{"ERROR", config.LogLevelError},
		{"debug", config.LogLevelDebug},
		{" Debug ", config.LogLevelDebug},
		{"verbose", config.LogLevelError},
		{"", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "off", config.LogLevelOff.String())
	assert.Equal(t, "error", config.LogLevelError.String())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func TestNewLogger_EmptyPath(t *testing.T) {
	t.Parallel()
	logger, err := config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	logger.Debug("test message")
	logger.Error("test error")
}

func TestNewLogger_WritesJSONLines(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")

	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()
	assert.Equal(t, logPath, logger.Path())

	logger.Debug("value: %d, string: %s", 42, "hello")
	logger.Error("failed")

	lines := logLines(t, logPath)
	require.Len(t, lines, 2)
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "value: 42, string: hello", lines[0]["message"])
	assert.Contains(t, lines[0], "time")
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "failed", lines[1]["message"])
}

func TestLogger_Component(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	disc := logger.Component("discovery")
	disc.Debug("scanning")
	logger.SetLevel(config.LogLevelError)
	disc.Debug("suppressed")
	disc.Error("broken")

	lines := logLines(t, logPath)
	require.Len(t, lines, 2)
	assert.Equal(t, "discovery", lines[0]["component"])
	assert.Equal(t, "scanning", lines[0]["message"])
	assert.Equal(t, "broken", lines[1]["message"])
}

func TestNewLogger_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := config.NewLogger(config.LogLevelDebug, "/proc/nonexistent/test.log")
	assert.Error(t, err)
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()
	assert.Equal(t, config.LogLevelOff, logger.Level())

	logger.Debug("test debug")
	logger.Component("x").Error("test error")
	assert.NoError(t, logger.Close())
}

func TestLogger_SetLevel(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()

	for _, lvl := range []config.LogLevel{config.LogLevelDebug, config.LogLevelError, config.LogLevelOff} {
		logger.SetLevel(lvl)
		assert.Equal(t, lvl, logger.Level())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, err := config.NewLogger(config.LogLevelError, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	logger.Debug("debug message")
	logger.Error("error message")

	content := string(readLogFile(t, logPath))
	assert.NotContains(t, content, "debug message")
	assert.Contains(t, content, "error message")
}

func TestLogger_LevelOff_NoFile(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, err := config.NewLogger(config.LogLevelOff, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	logger.Debug("debug")
	logger.Error("error")

	_, err = os.Stat(logPath)
	assert.True(t, os.IsNotExist(err))
}

func TestLogger_CloseStopsWriting(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	logger.Error("before")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	logger.Error("after")

	content := string(readLogFile(t, logPath))
	assert.Contains(t, content, "before")
	assert.NotContains(t, content, "after")
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Component(fmt.Sprintf("worker-%d", i)).Debug("message %d", i)
		}()
	}
	wg.Wait()

	assert.Len(t, logLines(t, logPath), 10)
}
