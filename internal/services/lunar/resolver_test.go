package lunar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	"LunarPull/pkg/util"
)

type fakeSource struct {
	byYear map[int][]models.PhaseEvent
	fail   map[int]error
	calls  []int
}

func (f *fakeSource) FetchYear(_ context.Context, year int) ([]models.PhaseEvent, error) {
	f.calls = append(f.calls, year)
	if err := f.fail[year]; err != nil {
		return nil, err
	}
	return f.byYear[year], nil
}

func eventsFor(start, end string) []models.PhaseEvent {
	// principal events taken from the local calendar's transitions
	var out []models.PhaseEvent
	prev := models.Phase(-1)
	for _, r := range LocalCalendar(day(start), day(end)) {
		if r.Phase != prev && r.Phase.Principal() {
			out = append(out, models.PhaseEvent{Date: r.Date, Phase: r.Phase})
		}
		prev = r.Phase
	}
	return out
}

func TestResolveUsesRemoteWhenAllYearsSucceed(t *testing.T) {
	src := &fakeSource{byYear: map[int][]models.PhaseEvent{
		2023: eventsFor("2023-01-01", "2023-12-31"),
		2024: eventsFor("2024-01-01", "2024-12-31"),
	}}
	r := NewResolver(src, false, nil)

	recs, source, err := r.Resolve(context.Background(), day("2023-11-15"), day("2024-02-10"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceUSNO, source)
	assert.Equal(t, []int{2023, 2024}, src.calls)
	assert.Len(t, recs, util.DaysBetween(day("2023-11-15"), day("2024-02-10"))+1)
	for _, rec := range recs {
		assert.Equal(t, models.SourceUSNO, rec.Source)
	}
}

func TestResolveFallsBackWhenAnyYearFails(t *testing.T) {
	src := &fakeSource{
		byYear: map[int][]models.PhaseEvent{2023: eventsFor("2023-01-01", "2023-12-31")},
		fail:   map[int]error{2024: apperr.Transport("usno year 2024", errors.New("timeout"))},
	}
	r := NewResolver(src, false, nil)

	start, end := day("2023-06-01"), day("2024-06-01")
	recs, source, err := r.Resolve(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, models.SourceLocal, source)
	assert.Equal(t, LocalCalendar(start, end), recs)
}

func TestResolveGapFillKeepsSuccessfulYears(t *testing.T) {
	src := &fakeSource{
		byYear: map[int][]models.PhaseEvent{2023: eventsFor("2023-01-01", "2023-12-31")},
		fail:   map[int]error{2024: apperr.Schemaf("usno year 2024", "missing phasedata")},
	}
	r := NewResolver(src, true, nil)

	recs, source, err := r.Resolve(context.Background(), day("2023-12-30"), day("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceMixed, source)
	require.Len(t, recs, 4)
	assert.Equal(t, models.SourceUSNO, recs[0].Source)
	assert.Equal(t, models.SourceLocal, recs[2].Source)
	assert.Equal(t, LocalPhase(day("2024-01-01")), recs[2].Phase)
}

func TestResolveGapFillDoesNotCarryLabelsAcrossFailedYear(t *testing.T) {
	src := &fakeSource{
		byYear: map[int][]models.PhaseEvent{
			2022: {{Date: day("2022-12-23"), Phase: models.NewMoon}},
			2024: {
				{Date: day("2024-01-04"), Phase: models.LastQuarter},
				{Date: day("2024-01-11"), Phase: models.NewMoon},
			},
		},
		fail: map[int]error{2023: apperr.Transport("usno year 2023", errors.New("timeout"))},
	}
	start, end := day("2022-12-20"), day("2024-01-12")
	recs, source, err := NewResolver(src, true, nil).Resolve(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, models.SourceMixed, source)
	require.Len(t, recs, 389)

	byDay := map[string]models.LunarPhaseRecord{}
	for _, rec := range recs {
		byDay[rec.Date.Format("2006-01-02")] = rec
	}
	assert.Equal(t, models.WaxingCrescent, byDay["2022-12-31"].Phase)
	assert.Equal(t, models.SourceUSNO, byDay["2022-12-31"].Source)
	assert.Equal(t, models.SourceLocal, byDay["2023-06-01"].Source)
	assert.Equal(t, LocalPhase(day("2023-06-01")), byDay["2023-06-01"].Phase)
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		assert.Equal(t, models.WaningGibbous, byDay[d].Phase, d)
		assert.Equal(t, models.SourceUSNO, byDay[d].Source, d)
	}
	assert.Equal(t, models.LastQuarter, byDay["2024-01-04"].Phase)
}

func TestResolveAllFailComputesLocally(t *testing.T) {
	src := &fakeSource{fail: map[int]error{2020: errors.New("down")}}
	recs, source, err := NewResolver(src, true, nil).Resolve(context.Background(), day("2020-03-01"), day("2020-03-31"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceLocal, source)
	assert.Len(t, recs, 31)
}

func TestResolveRejectsInvertedRange(t *testing.T) {
	_, _, err := NewResolver(nil, false, nil).Resolve(context.Background(), day("2024-02-01"), day("2024-01-01"))
	assert.True(t, errors.Is(err, apperr.ErrData))
}

func TestResolveSingleDay(t *testing.T) {
	recs, _, err := NewResolver(nil, false, nil).Resolve(context.Background(), day("2024-01-01"), day("2024-01-01"))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestResolveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{fail: map[int]error{2024: context.Canceled}}
	_, _, err := NewResolver(src, false, nil).Resolve(ctx, day("2024-01-01"), day("2024-01-31"))
	assert.ErrorIs(t, err, context.Canceled)
}
