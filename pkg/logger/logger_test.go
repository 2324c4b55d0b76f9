package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFiltersByLevelAndWritesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("prices fetched", String("symbol", "SPY"), Int("rows", 251), Duration("took", 1500*time.Millisecond))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"symbol":"SPY"`)
	assert.Contains(t, out, `"rows":251`)
	assert.Contains(t, out, `"took":1500`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWarnAndErrorReachCollector(t *testing.T) {
	c := NewLogCollector(nil)
	l := NewNop().WithCollector(c)

	l.Info("not collected")
	l.Warn("phase fetch failed", Int("year", 2021), Error(errors.New("timeout")), Date("day", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)))
	l.Error("upsert failed")

	entries := c.Entries()
	require.Len(t, entries, 2)
	byMsg := map[string]AggregatedLogEntry{}
	for _, e := range entries {
		byMsg[e.Message] = e
	}
	w := byMsg["phase fetch failed"]
	assert.Equal(t, "warn", w.Level)
	assert.Equal(t, "timeout", w.Fields["error"])
	assert.Equal(t, 2021, w.Fields["year"])
	assert.Equal(t, "2021-03-04", w.Fields["day"])
	assert.Contains(t, w.Caller, "logger_test.go:")
	assert.Equal(t, "error", byMsg["upsert failed"].Level)
}
