package features

import (
	"sort"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	"LunarPull/pkg/util"
)

// SortByDate returns a copy of points ordered by date.
func SortByDate(points []models.PricePoint) []models.PricePoint {
	out := make([]models.PricePoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ComputeReturns computes r_t = (C_t - C_{t-1}) / C_{t-1} * 100 over consecutive
// trading days. The first point has no return, so the result has len(points)-1
// entries (none for fewer than two points).
func ComputeReturns(points []models.PricePoint) ([]models.ReturnPoint, error) {
	if len(points) < 2 {
		return nil, nil
	}
	sorted := SortByDate(points)
	out := make([]models.ReturnPoint, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Close
		if prev == 0 {
			return nil, apperr.Dataf("returns", "%s: zero close on %s", sorted[i-1].Symbol, util.DayKey(sorted[i-1].Date))
		}
		out = append(out, models.ReturnPoint{
			Date:          sorted[i].Date,
			PercentReturn: (sorted[i].Close - prev) / prev * 100,
		})
	}
	return out, nil
}
