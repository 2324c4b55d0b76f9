package features

import (
	"LunarPull/internal/domain/models"
	"LunarPull/pkg/util"
)

// Join matches each return with its day's price and lunar phase by calendar date.
// Output follows the order of returns; dates missing on either side are dropped.
func Join(points []models.PricePoint, returns []models.ReturnPoint, calendar []models.LunarPhaseRecord) []models.JoinedRecord {
	phases := make(map[string]models.Phase, len(calendar))
	for _, c := range calendar {
		phases[util.DayKey(c.Date)] = c.Phase
	}
	bars := make(map[string]models.PricePoint, len(points))
	for _, p := range points {
		bars[util.DayKey(p.Date)] = p
	}

	out := make([]models.JoinedRecord, 0, len(returns))
	for _, r := range returns {
		key := util.DayKey(r.Date)
		phase, ok := phases[key]
		if !ok {
			continue
		}
		bar, ok := bars[key]
		if !ok {
			continue
		}
		out = append(out, models.JoinedRecord{
			Date:          util.DateOf(r.Date),
			Symbol:        bar.Symbol,
			Close:         bar.Close,
			Volume:        bar.Volume,
			PercentReturn: r.PercentReturn,
			Phase:         phase,
		})
	}
	return out
}

// BuildJoined computes returns over the full series, then joins them with the calendar.
func BuildJoined(points []models.PricePoint, calendar []models.LunarPhaseRecord) ([]models.JoinedRecord, error) {
	returns, err := ComputeReturns(points)
	if err != nil {
		return nil, err
	}
	return Join(points, returns, calendar), nil
}
