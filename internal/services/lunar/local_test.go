package lunar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LunarPull/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLocalPhaseKnownDates(t *testing.T) {
	assert.Equal(t, models.NewMoon, LocalPhase(day("2000-01-06")))
	assert.Equal(t, models.FullMoon, LocalPhase(day("2000-01-21")))
	assert.Equal(t, models.WaningCrescent, LocalPhase(day("2000-01-05")))
}

func TestLocalPhaseIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2023, 7, 14, 1, 0, 0, 0, time.UTC)
	night := time.Date(2023, 7, 14, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, LocalPhase(morning), LocalPhase(night))
}

func TestLocalPhaseDeterministicAndBounded(t *testing.T) {
	d := day("1990-01-01")
	for i := 0; i < 20000; i++ {
		p := LocalPhase(d)
		require.True(t, p.Valid(), d)
		require.Equal(t, p, LocalPhase(d))
		age := MoonAge(d)
		require.GreaterOrEqual(t, age, 0.0)
		require.Less(t, age, SynodicMonth)
		d = d.AddDate(0, 0, 1)
	}
}

func TestLocalCalendarCoverage(t *testing.T) {
	recs := LocalCalendar(day("2023-12-30"), day("2024-01-02"))
	require.Len(t, recs, 4)
	for i, r := range recs {
		assert.Equal(t, day("2023-12-30").AddDate(0, 0, i), r.Date)
		assert.Equal(t, models.SourceLocal, r.Source)
	}
}
