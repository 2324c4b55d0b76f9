package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	CountThreshold int       // max unique entries kept for a run (e.g., 200)
	Topic          string    // topic to send aggregated logs
	Publisher      Publisher // optional sink for Flush
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector aggregates repeated warnings and errors for one run.
// Entries beyond CountThreshold unique keys are counted in Dropped.
type LogCollector struct {
	config  CollectionConfig
	logMap  map[string]*AggregatedLogEntry
	dropped int
	mutex   sync.Mutex
	now     func() time.Time
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := CollectionConfig{CountThreshold: 200}
	if config != nil {
		cfg = *config
		if cfg.CountThreshold <= 0 {
			cfg.CountThreshold = 200
		}
	}
	return &LogCollector{
		config: cfg,
		logMap: make(map[string]*AggregatedLogEntry),
		now:    time.Now,
	}
}

func (d *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := d.now()
	key := d.generateKey(level, message, fields, caller)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if entry, exists := d.logMap[key]; exists {
		entry.Count++
		entry.LastSeen = now
		return
	}
	if len(d.logMap) >= d.config.CountThreshold {
		d.dropped++
		return
	}
	d.logMap[key] = &AggregatedLogEntry{
		Level:     level,
		Message:   message,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
}

func (d *LogCollector) generateKey(level, message string, fields map[string]interface{}, caller string) string {
	// Create a consistent hash from level + message + fields + caller
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{
		Level:   level,
		Message: message,
		Fields:  fields,
		Caller:  caller,
	}

	jsonData, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", hash)
}

// Entries returns a snapshot ordered by first occurrence.
func (d *LogCollector) Entries() []AggregatedLogEntry {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	logs := make([]AggregatedLogEntry, 0, len(d.logMap))
	for _, entry := range d.logMap {
		logs = append(logs, *entry)
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].FirstSeen.Equal(logs[j].FirstSeen) {
			return logs[i].Message < logs[j].Message
		}
		return logs[i].FirstSeen.Before(logs[j].FirstSeen)
	})
	return logs
}

// Dropped returns how many unique entries exceeded the threshold.
func (d *LogCollector) Dropped() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.dropped
}

// Flush publishes the aggregated entries to the configured topic and resets
// the collector. Without a publisher it only resets.
func (d *LogCollector) Flush(ctx context.Context) error {
	logs := d.Entries()

	d.mutex.Lock()
	d.logMap = make(map[string]*AggregatedLogEntry)
	d.dropped = 0
	d.mutex.Unlock()

	if len(logs) == 0 || d.config.Publisher == nil || d.config.Topic == "" {
		return nil
	}
	if err := d.config.Publisher.PublishMessage(ctx, d.config.Topic, logs); err != nil {
		return fmt.Errorf("send aggregated logs: %w", err)
	}
	return nil
}
