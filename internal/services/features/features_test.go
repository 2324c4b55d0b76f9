package features

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestComputeReturnsSimple(t *testing.T) {
	r, err := ComputeReturns([]models.PricePoint{
		{Symbol: "SPY", Date: d("2024-01-03"), Close: 110},
		{Symbol: "SPY", Date: d("2024-01-02"), Close: 100},
	})
	require.NoError(t, err)
	require.Len(t, r, 1)
	assert.Equal(t, d("2024-01-03"), r[0].Date)
	assert.InDelta(t, 10.0, r[0].PercentReturn, 1e-12)
}

func TestComputeReturnsLength(t *testing.T) {
	for n := 0; n < 6; n++ {
		pts := make([]models.PricePoint, n)
		for i := range pts {
			pts[i] = models.PricePoint{Date: d("2024-01-01").AddDate(0, 0, i), Close: float64(100 + i)}
		}
		r, err := ComputeReturns(pts)
		require.NoError(t, err)
		want := n - 1
		if want < 0 {
			want = 0
		}
		assert.Len(t, r, want)
	}
}

func TestComputeReturnsZeroPriorClose(t *testing.T) {
	_, err := ComputeReturns([]models.PricePoint{
		{Symbol: "QQQ", Date: d("2024-01-02"), Close: 0},
		{Symbol: "QQQ", Date: d("2024-01-03"), Close: 5},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrData))
	assert.Contains(t, err.Error(), "QQQ")
	assert.Contains(t, err.Error(), "2024-01-02")
}

func TestJoinInnerByDate(t *testing.T) {
	points := []models.PricePoint{
		{Symbol: "SPY", Date: d("2024-01-01"), Close: 1, Volume: 10},
		{Symbol: "SPY", Date: d("2024-01-02"), Close: 2, Volume: 20},
		{Symbol: "SPY", Date: d("2024-01-03"), Close: 3, Volume: 30},
	}
	returns := []models.ReturnPoint{
		{Date: d("2024-01-01"), PercentReturn: 1},
		{Date: d("2024-01-02").Add(15 * time.Hour), PercentReturn: 2},
		{Date: d("2024-01-03"), PercentReturn: 3},
	}
	calendar := []models.LunarPhaseRecord{
		{Date: d("2024-01-01"), Phase: models.NewMoon},
		{Date: d("2024-01-02"), Phase: models.FullMoon},
		{Date: d("2024-01-04"), Phase: models.LastQuarter},
	}

	joined := Join(points, returns, calendar)
	require.Len(t, joined, 2)
	assert.Equal(t, d("2024-01-01"), joined[0].Date)
	assert.Equal(t, models.NewMoon, joined[0].Phase)
	assert.Equal(t, d("2024-01-02"), joined[1].Date)
	assert.Equal(t, models.FullMoon, joined[1].Phase)
	assert.Equal(t, 20.0, joined[1].Volume)
	assert.Equal(t, "SPY", joined[1].Symbol)
}

func TestBuildJoinedDropsFirstDay(t *testing.T) {
	points := []models.PricePoint{
		{Symbol: "DIA", Date: d("2024-01-02"), Close: 100},
		{Symbol: "DIA", Date: d("2024-01-03"), Close: 101},
	}
	calendar := []models.LunarPhaseRecord{
		{Date: d("2024-01-02"), Phase: models.NewMoon},
		{Date: d("2024-01-03"), Phase: models.NewMoon},
	}
	joined, err := BuildJoined(points, calendar)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.InDelta(t, 1.0, joined[0].PercentReturn, 1e-12)
}
