package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	topic   string
	payload interface{}
	err     error
}

func (c *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	c.topic, c.payload = topic, payload
	return c.err
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	c := NewLogCollector(&CollectionConfig{CountThreshold: 2})
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	fields := map[string]interface{}{"year": 2021}
	c.AddLog("warn", "phase fetch failed", fields, "usno.go:10")
	c.AddLog("warn", "phase fetch failed", fields, "usno.go:10")
	c.AddLog("error", "upsert failed", nil, "sql_store.go:1")
	c.AddLog("error", "another", nil, "x.go:1")

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "phase fetch failed", entries[0].Message)
	assert.Equal(t, 2, entries[0].Count)
	assert.True(t, entries[0].LastSeen.After(entries[0].FirstSeen))
	assert.Equal(t, 1, c.Dropped())
}

func TestCollectorFlushPublishesAndResets(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{Topic: "lunar.logs", Publisher: pub})
	c.AddLog("error", "boom", nil, "a.go:1")

	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, "lunar.logs", pub.topic)
	assert.Len(t, pub.payload, 1)
	assert.Empty(t, c.Entries())

	pub.err = errors.New("broker down")
	c.AddLog("error", "boom", nil, "a.go:1")
	assert.Error(t, c.Flush(context.Background()))
}

func TestLoggerFeedsCollector(t *testing.T) {
	c := NewLogCollector(nil)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { clock = clock.Add(time.Second); return clock }
	log := NewNop().WithCollector(c)

	log.Info("ignored")
	log.Warn("year unavailable", Int("year", 2020))
	log.Error("write failed", Error(errors.New("timeout")))

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, 2020, entries[0].Fields["year"])
	assert.Equal(t, "timeout", entries[1].Fields["error"])
}
