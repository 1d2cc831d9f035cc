package mqtt311

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	t.Run("string representation", func(t *testing.T) {
		assert.Equal(t, "DEBUG", LogLevelDebug.String())
		assert.Equal(t, "INFO", LogLevelInfo.String())
		assert.Equal(t, "WARN", LogLevelWarn.String())
		assert.Equal(t, "ERROR", LogLevelError.String())
		assert.Equal(t, "NONE", LogLevelNone.String())
		assert.Equal(t, "UNKNOWN", LogLevel(99).String())
	})

	t.Run("level ordering", func(t *testing.T) {
		assert.True(t, LogLevelDebug < LogLevelInfo)
		assert.True(t, LogLevelInfo < LogLevelWarn)
		assert.True(t, LogLevelWarn < LogLevelError)
		assert.True(t, LogLevelError < LogLevelNone)
	})
}

func TestNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()

	t.Run("all methods are no-ops", func(_ *testing.T) {
		logger.Debug("test", nil)
		logger.Info("test", nil)
		logger.Warn("test", nil)
		logger.Error("test", nil)
	})

	t.Run("with fields returns same logger", func(t *testing.T) {
		newLogger := logger.WithFields(LogFields{"key": "value"})
		assert.Equal(t, logger, newLogger)
	})
}

func TestStdLogger(t *testing.T) {
	t.Run("debug level logs all", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewStdLogger(buf, LogLevelDebug)

		logger.Debug("debug message", nil)
		logger.Info("info message", nil)
		logger.Warn("warn message", nil)
		logger.Error("error message", nil)

		output := buf.String()
		assert.Contains(t, output, "[DEBUG] debug message")
		assert.Contains(t, output, "[INFO] info message")
		assert.Contains(t, output, "[WARN] warn message")
		assert.Contains(t, output, "[ERROR] error message")
	})

	t.Run("warn level skips debug and info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewStdLogger(buf, LogLevelWarn)

		logger.Debug("debug message", nil)
		logger.Info("info message", nil)
		logger.Warn("warn message", nil)

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warn message")
	})

	t.Run("none level logs nothing", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewStdLogger(buf, LogLevelNone)

		logger.Debug("debug message", nil)
		logger.Info("info message", nil)
		logger.Warn("warn message", nil)
		logger.Error("error message", nil)

		assert.Empty(t, buf.String())
	})

	t.Run("logs with sorted fields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewStdLogger(buf, LogLevelDebug)

		logger.Info("message", LogFields{
			"zebra": 1,
			"alpha": "first",
		})

		output := buf.String()
		assert.Contains(t, output, "alpha=first zebra=1")
	})

	t.Run("with fields preserves parent fields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewStdLogger(buf, LogLevelDebug)

		parent := logger.WithFields(LogFields{"parent": "field"})
		child := parent.WithFields(LogFields{"child": "field"})

		child.Info("message", nil)

		output := buf.String()
		assert.Contains(t, output, "parent")
		assert.Contains(t, output, "child")
	})

	t.Run("nil writer defaults to stderr", func(t *testing.T) {
		logger := NewStdLogger(nil, LogLevelDebug)
		assert.NotNil(t, logger)
		assert.NotNil(t, logger.logger)
	})
}

func TestColorLogger(t *testing.T) {
	t.Run("respects level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewColorLogger(buf, LogLevelWarn)

		logger.Debug("debug message", nil)
		logger.Warn("warn message", nil)

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.Contains(t, output, "warn message")
	})

	t.Run("with fields preserves parent fields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewColorLogger(buf, LogLevelDebug)

		child := logger.WithFields(LogFields{LogFieldClientID: "client-1"})
		child.Info("connected", nil)

		assert.Contains(t, buf.String(), "client-1")
	})
}

func TestLogFieldConstants(t *testing.T) {
	assert.Equal(t, "client_id", LogFieldClientID)
	assert.Equal(t, "topic", LogFieldTopic)
	assert.Equal(t, "packet_id", LogFieldPacketID)
	assert.Equal(t, "packet_type", LogFieldPacketType)
	assert.Equal(t, "qos", LogFieldQoS)
	assert.Equal(t, "return_code", LogFieldReturnCode)
	assert.Equal(t, "error", LogFieldError)
	assert.Equal(t, "remote_addr", LogFieldRemoteAddr)
	assert.Equal(t, "duration", LogFieldDuration)
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = NewNoOpLogger()
	var _ Logger = NewStdLogger(nil, LogLevelDebug)
	var _ Logger = NewColorLogger(nil, LogLevelDebug)
}

func TestLoggerConnectionLifecycle(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewStdLogger(buf, LogLevelDebug)

	connLogger := logger.WithFields(LogFields{
		LogFieldClientID:   "client-123",
		LogFieldRemoteAddr: "192.168.1.100:54321",
	})

	connLogger.Info("connection accepted", nil)
	connLogger.Debug("processing subscribe", LogFields{LogFieldTopic: "sensors/#"})
	connLogger.Info("connection closed", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)

	assert.Contains(t, lines[0], "connection accepted")
	assert.Contains(t, lines[1], "processing subscribe")
	assert.Contains(t, lines[2], "connection closed")
}

func BenchmarkStdLoggerWithFields(b *testing.B) {
	buf := &bytes.Buffer{}
	logger := NewStdLogger(buf, LogLevelDebug)
	fields := LogFields{"key": "value", "count": 42}

	b.ReportAllocs()
	for b.Loop() {
		logger.Info("test message", fields)
	}
}
