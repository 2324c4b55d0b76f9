package usecase

import (
	"context"
	"time"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	drepo "LunarPull/internal/domain/repository"
	dsvc "LunarPull/internal/domain/service"
	applogger "LunarPull/pkg/logger"
	"LunarPull/pkg/util"
)

// MaxPhaseSpanDays bounds a single calendar query.
const MaxPhaseSpanDays = 3660

// SourceStore marks a calendar served from the relational store.
const SourceStore = "store"

// ResultsUseCase provides the read side over stored results and the resolver.
type ResultsUseCase struct {
	store    drepo.AnalysisStore
	resolver dsvc.PhaseResolver
	log      *applogger.Logger
}

func NewResultsUseCase(store drepo.AnalysisStore, resolver dsvc.PhaseResolver, log *applogger.Logger) *ResultsUseCase {
	if log == nil {
		log = applogger.NewNop()
	}
	return &ResultsUseCase{store: store, resolver: resolver, log: log}
}

type PhasesResult struct {
	From   time.Time                 `json:"from"`
	To     time.Time                 `json:"to"`
	Source string                    `json:"source"`
	Count  int                       `json:"count"`
	Phases []models.LunarPhaseRecord `json:"phases"`
}

// Phases returns the daily calendar for [from, to]. A fully stored range is
// served from the store; anything else is resolved.
func (uc *ResultsUseCase) Phases(ctx context.Context, from, to time.Time) (*PhasesResult, error) {
	from, to = util.DateOf(from), util.DateOf(to)
	if from.After(to) {
		return nil, apperr.Dataf("phases", "from must be <= to")
	}
	days := util.DaysBetween(from, to) + 1
	if days > MaxPhaseSpanDays {
		return nil, apperr.Dataf("phases", "range of %d days exceeds %d", days, MaxPhaseSpanDays)
	}

	stored, err := uc.store.ListPhases(ctx, from, to)
	if err != nil {
		uc.log.Warn("stored phases unavailable, resolving",
			applogger.Date("from", from),
			applogger.Date("to", to),
			applogger.String("kind", string(apperr.KindOf(err))),
			applogger.Error(err),
		)
	}
	if err == nil && len(stored) == days {
		for i := range stored {
			stored[i].Source = SourceStore
		}
		return &PhasesResult{From: from, To: to, Source: SourceStore, Count: len(stored), Phases: stored}, nil
	}

	recs, source, err := uc.resolver.Resolve(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &PhasesResult{From: from, To: to, Source: source, Count: len(recs), Phases: recs}, nil
}

type ReturnsResult struct {
	Symbol string                  `json:"symbol"`
	Count  int                     `json:"count"`
	Rows   []models.PhaseReturnRow `json:"rows"`
}

func (uc *ResultsUseCase) Returns(ctx context.Context, symbol string, limit int) (*ReturnsResult, error) {
	if symbol == "" {
		return nil, apperr.Dataf("returns", "symbol required")
	}
	rows, err := uc.store.ListPhaseReturns(ctx, symbol, clampLimit(limit, 8, 800))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.InsufficientDataf("returns", "no stored returns for %s", symbol)
	}
	return &ReturnsResult{Symbol: symbol, Count: len(rows), Rows: rows}, nil
}

type SummaryResult struct {
	Count     int                        `json:"count"`
	Summaries []models.InstrumentSummary `json:"summaries"`
}

func (uc *ResultsUseCase) Summaries(ctx context.Context, symbol string, limit int) (*SummaryResult, error) {
	rows, err := uc.store.ListSummaries(ctx, symbol, clampLimit(limit, 20, 500))
	if err != nil {
		return nil, err
	}
	return &SummaryResult{Count: len(rows), Summaries: rows}, nil
}

// Health checks the store.
func (uc *ResultsUseCase) Health(ctx context.Context) error { return uc.store.Health(ctx) }

func clampLimit(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
