package repository

import (
	"context"

	"LunarPull/internal/domain/models"
	domrepo "LunarPull/internal/domain/repository"
	pkgkafka "LunarPull/pkg/kafka"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher emits analysis events keyed by symbol.
type KafkaPublisher struct {
	producer batchProducer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

type analysisEvent struct {
	RunID string `json:"run_id"`
	models.InstrumentAnalysis
}

type diagnosticsEvent struct {
	RunID       string              `json:"run_id"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

func (p *KafkaPublisher) PublishAnalysis(ctx context.Context, runID string, a models.InstrumentAnalysis) error {
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{
		Key:   []byte(a.Symbol),
		Value: analysisEvent{RunID: runID, InstrumentAnalysis: a},
	}})
}

// PublishDiagnostics sends one message per run, keyed by run id.
func (p *KafkaPublisher) PublishDiagnostics(ctx context.Context, runID string, d []models.Diagnostic) error {
	if len(d) == 0 {
		return nil
	}
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{
		Key:   []byte(runID),
		Value: diagnosticsEvent{RunID: runID, Diagnostics: d},
	}})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)
