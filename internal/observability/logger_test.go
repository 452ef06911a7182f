// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xanderpitz/billhawk/internal/config"
)

// -- Test Helper Functions --

// newCaptureWriter returns a WriteSyncer backed by an in-memory buffer so
// console output can be asserted without touching os.Stdout.
func newCaptureWriter() (*bytes.Buffer, zapcore.WriteSyncer) {
	var buf bytes.Buffer
	return &buf, zapcore.AddSync(&buf)
}

// -- Test Cases --

func TestInitialize(t *testing.T) {

	t.Run("should initialize console logger with colors", func(t *testing.T) {
		ResetForTest()
		buf, writer := newCaptureWriter()

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors: config.ColorConfig{
				Info: "green",
			},
		}
		Initialize(cfg, writer)
		logger := GetLogger()
		logger.Info("This is a test message.")

		output := buf.String()
		assert.Contains(t, output, "INFO", "Output should contain the log level")
		assert.Contains(t, output, "This is a test message.", "Output should contain the message")
		assert.Contains(t, output, colorGreen, "Info level should be colorized green")
		assert.Contains(t, output, colorReset, "Output should contain the reset color code")
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		buf, writer := newCaptureWriter()

		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "JSONTest",
		}
		Initialize(cfg, writer)
		logger := GetLogger()
		logger.Warn("This is a JSON message.", zap.String("key", "value"))

		// -- the output should be a valid JSON object --
		var logEntry map[string]interface{}
		err := json.Unmarshal(buf.Bytes(), &logEntry)
		require.NoError(t, err, "Log output should be valid JSON")

		// JSON output uses capitalized levels ("WARN", "ERROR").
		assert.Equal(t, "WARN", logEntry["level"])
		assert.Equal(t, "JSONTest", logEntry["logger"])
		assert.Equal(t, "This is a JSON message.", logEntry["msg"])
		assert.Equal(t, "value", logEntry["key"])
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		ResetForTest()
		_, writer := newCaptureWriter()
		logPath := t.TempDir() + "/billhawk-test.log"

		cfg := config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logPath,
			MaxSize: 1, // 1 MB
		}
		Initialize(cfg, writer)
		logger := GetLogger()
		logger.Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.", "Log file should contain the message")
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		buf, writer := newCaptureWriter()

		// -- first initialization --
		cfg1 := config.LoggerConfig{Level: "info", ServiceName: "First"}
		Initialize(cfg1, writer)
		logger1 := GetLogger()

		// -- second, should be ignored --
		cfg2 := config.LoggerConfig{Level: "debug", ServiceName: "Second"}
		Initialize(cfg2, writer)
		logger2 := GetLogger()

		// -- check that the logger is the same instance with the first config --
		assert.Equal(t, logger1, logger2)
		logger2.Info("test")

		// The service name should be "First", not "Second"
		assert.True(t, strings.Contains(buf.String(), "First"))
		assert.False(t, strings.Contains(buf.String(), "Second"))
	})

	t.Run("should fall back to info on an invalid level", func(t *testing.T) {
		ResetForTest()
		buf, writer := newCaptureWriter()

		cfg := config.LoggerConfig{Level: "loud", Format: "json", ServiceName: "LevelTest"}
		Initialize(cfg, writer)
		logger := GetLogger()

		logger.Debug("suppressed")
		logger.Info("visible")

		assert.NotContains(t, buf.String(), "suppressed")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("should return a fallback logger if not initialized", func(t *testing.T) {
		ResetForTest()
		// -- we do not call Initialize() here --
		logger := GetLogger()
		require.NotNil(t, logger)
		assert.NotPanics(t, func() { logger.Info("pre-init message") })
	})

	t.Run("should return the global logger after initialization", func(t *testing.T) {
		ResetForTest()
		_, writer := newCaptureWriter()
		cfg := config.LoggerConfig{Level: "info", ServiceName: "GlobalTest"}
		Initialize(cfg, writer)

		logger := GetLogger()
		// The pointer to the logger instance should be the same as the one stored.
		assert.Equal(t, globalLogger.Load(), logger)
	})
}
