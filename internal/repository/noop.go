package repository

import (
	"context"
	"time"

	"LunarPull/internal/domain/models"
	domrepo "LunarPull/internal/domain/repository"
)

// NopStore stands in for the relational store when it is disabled.
type NopStore struct{}

func (NopStore) Init(context.Context) error                                         { return nil }
func (NopStore) SavePhaseCalendar(context.Context, []models.LunarPhaseRecord) error { return nil }
func (NopStore) SavePrices(context.Context, []models.PricePoint) error              { return nil }
func (NopStore) SavePhaseReturns(context.Context, []models.PhaseReturnRow) error    { return nil }
func (NopStore) UpsertSummary(context.Context, models.InstrumentSummary) error      { return nil }
func (NopStore) ListPhases(context.Context, time.Time, time.Time) ([]models.LunarPhaseRecord, error) {
	return nil, nil
}
func (NopStore) ListPhaseReturns(context.Context, string, int) ([]models.PhaseReturnRow, error) {
	return nil, nil
}
func (NopStore) ListSummaries(context.Context, string, int) ([]models.InstrumentSummary, error) {
	return nil, nil
}
func (NopStore) Health(context.Context) error { return nil }
func (NopStore) Close() error                 { return nil }

// NopPublisher drops events when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishAnalysis(context.Context, string, models.InstrumentAnalysis) error {
	return nil
}
func (NopPublisher) PublishDiagnostics(context.Context, string, []models.Diagnostic) error {
	return nil
}
func (NopPublisher) Close() error { return nil }

var (
	_ domrepo.AnalysisStore = NopStore{}
	_ domrepo.Publisher     = NopPublisher{}
)
