package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LunarPull/internal/domain/models"
	pkgkafka "LunarPull/pkg/kafka"
)

type recordingProducer struct {
	topic string
	msgs  []pkgkafka.Message
}

func (r *recordingProducer) PublishBatch(_ context.Context, topic string, m []pkgkafka.Message) error {
	r.topic = topic
	r.msgs = append(r.msgs, m...)
	return nil
}

func (r *recordingProducer) Close() error { return nil }

func TestKafkaPublisherKeysBySymbol(t *testing.T) {
	rec := &recordingProducer{}
	p := &KafkaPublisher{producer: rec, topic: "lunar.analysis"}

	require.NoError(t, p.PublishAnalysis(context.Background(), "run-1", models.InstrumentAnalysis{Symbol: "SPY"}))
	require.NoError(t, p.PublishDiagnostics(context.Background(), "run-1", nil))
	require.NoError(t, p.PublishDiagnostics(context.Background(), "run-1", []models.Diagnostic{{Level: "warn", Message: "x", Count: 2}}))

	assert.Equal(t, "lunar.analysis", rec.topic)
	require.Len(t, rec.msgs, 2)
	assert.Equal(t, []byte("SPY"), rec.msgs[0].Key)
	ev, ok := rec.msgs[0].Value.(analysisEvent)
	require.True(t, ok)
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, []byte("run-1"), rec.msgs[1].Key)
}

func TestLocalBlobStoreOverwrites(t *testing.T) {
	root := t.TempDir()
	s := NewLocalBlobStore(root)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "lunar-phases", "lunar_phases.csv", []byte("v1")))
	require.NoError(t, s.Upload(ctx, "lunar-phases", "lunar_phases.csv", []byte("v2")))

	b, err := os.ReadFile(filepath.Join(root, "lunar-phases", "lunar_phases.csv"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))
}
