package lunar

import (
	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	"LunarPull/pkg/csvio"
	"LunarPull/pkg/util"
)

// CalendarTable renders records as the Date,Phase CSV table.
func CalendarTable(records []models.LunarPhaseRecord) csvio.Table {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{util.DayKey(r.Date), r.Phase.String()}
	}
	return csvio.Table{Headers: []string{"Date", "Phase"}, Records: rows}
}

// ParseCalendarTable reads a Date,Phase table back into records.
func ParseCalendarTable(t csvio.Table, source string) ([]models.LunarPhaseRecord, error) {
	idx, err := t.Index("date", "phase")
	if err != nil {
		return nil, apperr.Schema("lunar calendar csv", err)
	}
	out := make([]models.LunarPhaseRecord, 0, len(t.Records))
	for i, row := range t.Records {
		d, err := util.ParseDay(row[idx["date"]])
		if err != nil {
			return nil, apperr.Schemaf("lunar calendar csv", "row %d: %v", i+1, err)
		}
		p, err := models.ParsePhase(row[idx["phase"]])
		if err != nil {
			return nil, apperr.Schemaf("lunar calendar csv", "row %d: %v", i+1, err)
		}
		out = append(out, models.LunarPhaseRecord{Date: d, Phase: p, Source: source})
	}
	return out, nil
}
