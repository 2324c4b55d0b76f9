package repository

import (
	"context"
	"time"

	"LunarPull/internal/domain/models"
)

// PhaseEventSource returns the remote phase-events for one calendar year.
type PhaseEventSource interface {
	FetchYear(ctx context.Context, year int) ([]models.PhaseEvent, error)
}

// PriceSource supplies daily prices for a symbol over an inclusive date range.
type PriceSource interface {
	FetchPrices(ctx context.Context, symbol string, start, end time.Time) ([]models.PricePoint, error)
}

// AnalysisStore is the relational store for calendars, prices and results.
type AnalysisStore interface {
	Init(ctx context.Context) error // ensure tables
	SavePhaseCalendar(ctx context.Context, records []models.LunarPhaseRecord) error
	SavePrices(ctx context.Context, prices []models.PricePoint) error
	SavePhaseReturns(ctx context.Context, rows []models.PhaseReturnRow) error
	UpsertSummary(ctx context.Context, s models.InstrumentSummary) error
	ListPhases(ctx context.Context, from, to time.Time) ([]models.LunarPhaseRecord, error)
	ListPhaseReturns(ctx context.Context, symbol string, limit int) ([]models.PhaseReturnRow, error)
	ListSummaries(ctx context.Context, symbol string, limit int) ([]models.InstrumentSummary, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// BlobStore uploads run artifacts, overwriting existing objects.
type BlobStore interface {
	Upload(ctx context.Context, container, name string, data []byte) error
}

// Publisher emits per-instrument results and run diagnostics.
type Publisher interface {
	PublishAnalysis(ctx context.Context, runID string, a models.InstrumentAnalysis) error
	PublishDiagnostics(ctx context.Context, runID string, d []models.Diagnostic) error
	Close() error
}

type Metrics interface {
	RecordStage(stage string, seconds float64)
	RecordRecords(kind, symbol string, n int)
	RecordError(kind string)
	RecordPhaseSource(source string)
	RecordPValue(symbol string, p float64)
}
