package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"info", InfoLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestStructuredLogger_WritesJSONWithRunContext(t *testing.T) {
	var out bytes.Buffer
	logger := NewStructuredLogger("weather-etl", "test", InfoLevel)
	logger.SetOutput(&out)

	ctx := WithRun(context.Background(), "accuweather", "run-1")
	logger.Info(ctx, "[TEST] hello", Fields{"rows": 3})
	logger.Debug(ctx, "[TEST] dropped", nil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "[TEST] hello", entry.Message)
	assert.Equal(t, "accuweather", entry.Pipeline)
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, float64(3), entry.Fields["rows"])
}

func TestStructuredLogger_ErrorIncludesCaller(t *testing.T) {
	var out bytes.Buffer
	logger := NewStructuredLogger("weather-etl", "test", InfoLevel)
	logger.SetOutput(&out)

	logger.Error(context.Background(), "[TEST] boom", Fields{}, errors.New("bad thing"))

	var entry LogEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "bad thing", entry.Error)
	assert.NotEmpty(t, entry.File)
	assert.NotZero(t, entry.Line)
}

func TestContextLogger_MergesFields(t *testing.T) {
	var out bytes.Buffer
	logger := NewStructuredLogger("weather-etl", "test", DebugLevel)
	logger.SetOutput(&out)

	logger.WithFields(Fields{"table": "staging", "rows": 1}).Info(context.Background(), "msg", Fields{"rows": 2})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "staging", entry.Fields["table"])
	assert.Equal(t, float64(2), entry.Fields["rows"])
}

func TestRunCapture_InMemory(t *testing.T) {
	var out bytes.Buffer
	logger := NewStructuredLogger("weather-etl", "test", InfoLevel)
	logger.SetOutput(&out)

	capture, err := StartCapture(logger, "accuweather", "", time.Now())
	require.NoError(t, err)
	assert.Empty(t, capture.Path())

	logger.Info(context.Background(), "[TEST] captured", nil)
	require.NoError(t, capture.Close())
	logger.Info(context.Background(), "[TEST] after close", nil)

	assert.Contains(t, capture.Logs(), "captured")
	assert.NotContains(t, capture.Logs(), "after close")
	assert.Contains(t, out.String(), "after close")
}

func TestRunCapture_WritesFile(t *testing.T) {
	dir := t.TempDir()
	logger := NewStructuredLogger("weather-etl", "test", InfoLevel)
	logger.SetOutput(&bytes.Buffer{})

	startedAt := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	capture, err := StartCapture(logger, "accuweather", dir, startedAt)
	require.NoError(t, err)

	logger.Info(context.Background(), "[TEST] to file", nil)
	require.NoError(t, capture.Close())

	assert.True(t, strings.HasSuffix(capture.Path(), "accuweather_20240501_073000.log"))
	data, err := os.ReadFile(capture.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
