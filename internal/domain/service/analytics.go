package service

import (
	"context"
	"time"

	"LunarPull/internal/domain/models"
)

// PhaseResolver produces a gap-free daily phase calendar for a date range.
type PhaseResolver interface {
	Resolve(ctx context.Context, start, end time.Time) ([]models.LunarPhaseRecord, string, error)
}

// StatsEngine computes per-phase statistics, ANOVA and correlations for one instrument.
type StatsEngine interface {
	Analyze(symbol string, records []models.JoinedRecord) models.InstrumentAnalysis
}

// ReportRenderer turns a finished run into report artifacts keyed by file name.
type ReportRenderer interface {
	Render(ctx context.Context, run models.AnalysisRun) (map[string][]byte, error)
}
