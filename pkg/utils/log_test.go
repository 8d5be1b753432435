package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		buf := new(bytes.Buffer)
		logger := newLogger(buf, HandlerTypeJSON, LogLevelInfo)
		logger.Debug("Dropped message.")
		logger.Info("Kept message.", "key", "value")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "Expected exactly one JSON record")
		assert.Equal(t, "Kept message.", record["msg"])
		assert.Equal(t, "value", record["key"])
	})

	t.Run("text", func(t *testing.T) {
		buf := new(bytes.Buffer)
		logger := newLogger(buf, HandlerTypeText, LogLevelWarn)
		logger.Info("Dropped message.")
		logger.Warn("Kept message.")
		assert.NotContains(t, buf.String(), "Dropped message.")
		assert.Contains(t, buf.String(), `msg="Kept message."`)
	})

	t.Run("unsupported level falls back to info", func(t *testing.T) {
		if IsTestMode {
			t.Skip("Invariants panic in test mode.")
		}
		before := GetMetricValue("log", "unsupported_log_level")
		buf := new(bytes.Buffer)
		logger := newLogger(buf, HandlerTypeText, LogLevel("verbose"))
		logger.Debug("Dropped message.")
		logger.Info("Kept message.")
		assert.Equal(t, before+1, GetMetricValue("log", "unsupported_log_level"))
		assert.NotContains(t, buf.String(), "Dropped message.")
		assert.Contains(t, buf.String(), "Kept message.")
	})
}
