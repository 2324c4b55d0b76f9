package lunar

import (
	"context"
	"fmt"
	"time"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	domrepo "LunarPull/internal/domain/repository"
	domsvc "LunarPull/internal/domain/service"
	applogger "LunarPull/pkg/logger"
	"LunarPull/pkg/util"
)

// Resolver produces a gap-free daily phase calendar, remote first.
type Resolver struct {
	source  domrepo.PhaseEventSource
	gapFill bool
	log     *applogger.Logger
}

// NewResolver builds a resolver. A nil source always computes locally.
// With gapFill, failed years are computed locally and the rest keep remote labels;
// otherwise any failed year sends the whole range to the local computation.
func NewResolver(source domrepo.PhaseEventSource, gapFill bool, log *applogger.Logger) *Resolver {
	if log == nil {
		log = applogger.NewNop()
	}
	return &Resolver{source: source, gapFill: gapFill, log: log}
}

// Resolve returns exactly one record per date in [start, end] and the source used.
func (r *Resolver) Resolve(ctx context.Context, start, end time.Time) ([]models.LunarPhaseRecord, string, error) {
	start, end = util.DateOf(start), util.DateOf(end)
	if end.Before(start) {
		return nil, "", apperr.Dataf("resolve phases", "end %s before start %s", util.DayKey(end), util.DayKey(start))
	}

	if r.source == nil {
		return r.local(start, end, "no remote source configured")
	}

	var (
		years  = util.YearsBetween(start, end)
		events []models.PhaseEvent
		byYear = map[int][]models.PhaseEvent{}
		failed = map[int]bool{}
	)
	for _, year := range years {
		ev, err := r.source.FetchYear(ctx, year)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", fmt.Errorf("resolve phases: %w", ctxErr)
		}
		if err != nil {
			failed[year] = true
			r.log.Warn("phase events unavailable for year",
				applogger.Int("year", year),
				applogger.String("kind", string(apperr.KindOf(err))),
				applogger.Error(err),
			)
			continue
		}
		r.log.Debug("phase events fetched", applogger.Int("year", year), applogger.Int("events", len(ev)))
		events = append(events, ev...)
		byYear[year] = ev
	}

	if len(events) == 0 {
		return r.local(start, end, "remote source returned no events")
	}
	if len(failed) > 0 && !r.gapFill {
		return r.local(start, end, fmt.Sprintf("%d year(s) failed", len(failed)))
	}

	var records []models.LunarPhaseRecord
	source := models.SourceUSNO
	if len(failed) == 0 {
		records = ExpandEvents(events, start, end)
	} else {
		source = models.SourceMixed
		records = stitch(years, byYear, failed, start, end)
	}

	if err := checkCoverage(records, start, end); err != nil {
		return nil, "", err
	}
	r.log.Info("phase calendar resolved",
		applogger.String("source", source),
		applogger.Int("days", len(records)),
		applogger.Int("failed_years", len(failed)),
	)
	return records, source, nil
}

// stitch expands each run of consecutive remote years on its own and computes
// failed years locally. Labels never carry across a failed year.
func stitch(years []int, byYear map[int][]models.PhaseEvent, failed map[int]bool, start, end time.Time) []models.LunarPhaseRecord {
	out := make([]models.LunarPhaseRecord, 0, util.DaysBetween(start, end)+1)
	for i := 0; i < len(years); {
		j := i
		for j+1 < len(years) && failed[years[j+1]] == failed[years[i]] {
			j++
		}
		from, to := yearSpan(years[i], years[j], start, end)
		if failed[years[i]] {
			out = append(out, LocalCalendar(from, to)...)
		} else {
			var run []models.PhaseEvent
			for _, y := range years[i : j+1] {
				run = append(run, byYear[y]...)
			}
			if recs := ExpandEvents(run, from, to); recs != nil {
				out = append(out, recs...)
			} else {
				out = append(out, LocalCalendar(from, to)...)
			}
		}
		i = j + 1
	}
	return out
}

// yearSpan clips [Jan 1 of first, Dec 31 of last] to [start, end].
func yearSpan(first, last int, start, end time.Time) (time.Time, time.Time) {
	from := time.Date(first, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(last, time.December, 31, 0, 0, 0, 0, time.UTC)
	if from.Before(start) {
		from = start
	}
	if to.After(end) {
		to = end
	}
	return from, to
}

func (r *Resolver) local(start, end time.Time, reason string) ([]models.LunarPhaseRecord, string, error) {
	records := LocalCalendar(start, end)
	if err := checkCoverage(records, start, end); err != nil {
		return nil, "", err
	}
	r.log.Info("phase calendar computed locally",
		applogger.String("reason", reason),
		applogger.Int("days", len(records)),
	)
	return records, models.SourceLocal, nil
}

// checkCoverage asserts one strictly increasing record per day of the range.
func checkCoverage(records []models.LunarPhaseRecord, start, end time.Time) error {
	want := util.DaysBetween(start, end) + 1
	if len(records) != want {
		return apperr.Dataf("resolve phases", "calendar has %d days, want %d", len(records), want)
	}
	for i, rec := range records {
		if !rec.Date.Equal(start.AddDate(0, 0, i)) {
			return apperr.Dataf("resolve phases", "calendar gap at %s", util.DayKey(rec.Date))
		}
	}
	return nil
}

var _ domsvc.PhaseResolver = (*Resolver)(nil)
