package lunar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LunarPull/internal/domain/models"
	"LunarPull/pkg/csvio"
)

func TestExpandEventsFillsIntermediatePhases(t *testing.T) {
	events := []models.PhaseEvent{
		{Date: day("2024-01-11"), Phase: models.NewMoon},
		{Date: day("2024-01-04"), Phase: models.LastQuarter},
		{Date: day("2024-01-18"), Phase: models.FirstQuarter},
	}
	recs := ExpandEvents(events, day("2024-01-02"), day("2024-01-20"))
	require.Len(t, recs, 19)

	byDay := map[string]models.Phase{}
	for _, r := range recs {
		byDay[r.Date.Format("2006-01-02")] = r.Phase
		assert.Equal(t, models.SourceUSNO, r.Source)
	}
	assert.Equal(t, models.WaningGibbous, byDay["2024-01-02"])
	assert.Equal(t, models.LastQuarter, byDay["2024-01-04"])
	assert.Equal(t, models.WaningCrescent, byDay["2024-01-05"])
	assert.Equal(t, models.WaningCrescent, byDay["2024-01-10"])
	assert.Equal(t, models.NewMoon, byDay["2024-01-11"])
	assert.Equal(t, models.WaxingCrescent, byDay["2024-01-17"])
	assert.Equal(t, models.FirstQuarter, byDay["2024-01-18"])
	assert.Equal(t, models.WaxingGibbous, byDay["2024-01-20"])
}

func TestExpandEventsDuplicateDateKeepsFirst(t *testing.T) {
	events := []models.PhaseEvent{
		{Date: day("2024-01-11"), Phase: models.NewMoon},
		{Date: day("2024-01-11"), Phase: models.FullMoon},
	}
	recs := ExpandEvents(events, day("2024-01-11"), day("2024-01-11"))
	require.Len(t, recs, 1)
	assert.Equal(t, models.NewMoon, recs[0].Phase)
}

func TestExpandEventsEmpty(t *testing.T) {
	assert.Nil(t, ExpandEvents(nil, day("2024-01-01"), day("2024-01-31")))
}

func TestCalendarTableRoundTrip(t *testing.T) {
	recs := LocalCalendar(day("2024-02-28"), day("2024-03-01"))
	tbl := CalendarTable(recs)
	assert.Equal(t, []string{"Date", "Phase"}, tbl.Headers)
	assert.Equal(t, "2024-02-29", tbl.Records[1][0])

	back, err := ParseCalendarTable(tbl, models.SourceLocal)
	require.NoError(t, err)
	assert.Equal(t, recs, back)

	_, err = ParseCalendarTable(csvio.Table{Headers: []string{"Date", "Phase"}, Records: [][]string{{"2024-01-01", "Harvest Moon"}}}, "")
	assert.Error(t, err)
}
