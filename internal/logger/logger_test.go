package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestTradeLine(t *testing.T) {
	var buf bytes.Buffer
	log := New(LogConfig{Level: "INFO", Format: "json", Output: &buf})

	log.Trade(context.Background(), "AAPL", "BUY", 10, "101.50", "fill-1", "cash", "9000")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "TRADE", got[0]["type"])
	assert.Equal(t, "AAPL", got[0]["symbol"])
	assert.Equal(t, float64(10), got[0]["quantity"])
	assert.Equal(t, "9000", got[0]["cash"])
}

func TestDebugNeedsDetailed(t *testing.T) {
	var buf bytes.Buffer
	log := New(LogConfig{Level: "DEBUG", Output: &buf})
	log.Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	detailed := New(LogConfig{Level: "DEBUG", DetailedLogging: true, Output: &buf})
	detailed.Debug(context.Background(), "shown")
	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["msg"])
	assert.Contains(t, got[0], "source")
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(LogConfig{Level: "WARN", Output: &buf})
	log.Info(context.Background(), "dropped")
	log.Warn(context.Background(), "kept")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0]["msg"])
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(LogConfig{Output: &buf}).With("run", "r1")
	log.Info(context.Background(), "hello")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0]["run"])
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Error(context.Background(), "nothing")
	assert.False(t, log.IsDebugEnabled())
}
