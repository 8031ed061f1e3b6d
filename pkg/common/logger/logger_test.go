package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesJSONWithServiceAndTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "ascendpay-test", func(context.Context) string { return "trace-123" })

	log.Info(context.Background(), "tenant database connected", "tenant_id", "fnb")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "tenant database connected", lines[0]["msg"])
	assert.Equal(t, "ascendpay-test", lines[0]["service"])
	assert.Equal(t, "fnb", lines[0]["tenant_id"])
	assert.Equal(t, "trace-123", lines[0]["trace_id"])
	assert.Contains(t, lines[0]["file"], "logger_test.go")
}

func TestLogger_RespectsMinLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "ascendpay-test", nil)

	log.Debug(context.Background(), "dropped")
	log.Info(context.Background(), "dropped")
	log.Warn(context.Background(), "kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestLogger_With(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "ascendpay-test", nil).With("component", "registry", 42, "skipped")

	log.Info(context.Background(), "hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "registry", lines[0]["component"])
}

func TestLogger_Events(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		errors []Record
	)
	events := Events{
		Error: func(_ context.Context, r Record) {
			mu.Lock()
			errors = append(errors, r)
			mu.Unlock()
		},
	}

	var buf bytes.Buffer
	log := NewWithEvents(&buf, LevelDebug, "ascendpay-test", nil, events)

	log.Info(context.Background(), "not an error")
	log.Error(context.Background(), "tenant database connection failed", "tenant_id", "absa")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errors, 1)
	assert.Equal(t, "tenant database connection failed", errors[0].Message)
	assert.Equal(t, LevelError, errors[0].Level)
	assert.Equal(t, "absa", errors[0].Attributes["tenant_id"])
}

func TestLoggerContext_AddAndClear(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lc := NewLoggerContext(New(&buf, LevelInfo, "ascendpay-test", nil))

	lc.Add("handle_id", "h-1")
	lc.Info(context.Background(), "first", "step", "open")
	lc.Clear()
	lc.Info(context.Background(), "second")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "h-1", lines[0]["handle_id"])
	assert.Equal(t, "open", lines[0]["step"])
	assert.NotContains(t, lines[1], "handle_id")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "loud", want: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
