package stats

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	"LunarPull/internal/services/features"
)

func rec(p models.Phase, ret float64) models.JoinedRecord {
	return models.JoinedRecord{Symbol: "SPY", Phase: p, PercentReturn: ret}
}

func TestPhaseStatsFullMoon(t *testing.T) {
	got := PhaseStats("SPY", []models.JoinedRecord{rec(models.FullMoon, 1), rec(models.FullMoon, 3), rec(models.NewMoon, 5)})
	require.Len(t, got, 2)

	assert.Equal(t, models.NewMoon, got[0].Phase)
	assert.Equal(t, 0.0, got[0].StdDevReturn, "single observation")
	assert.Equal(t, 1, got[0].SampleCount)

	full := got[1]
	assert.Equal(t, models.FullMoon, full.Phase)
	assert.InDelta(t, 2.0, full.MeanReturn, 1e-12)
	assert.InDelta(t, math.Sqrt2, full.StdDevReturn, 1e-12)
	assert.Equal(t, 2, full.SampleCount)
}

func TestANOVAIdenticalGroups(t *testing.T) {
	var rs []models.JoinedRecord
	for _, p := range []models.Phase{models.NewMoon, models.FullMoon} {
		for _, v := range []float64{1, 2, 3} {
			rs = append(rs, rec(p, v))
		}
	}
	res, err := OneWayANOVA("SPY", rs)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.FStatistic, 1e-12)
	assert.InDelta(t, 1.0, res.PValue, 1e-12)
	assert.False(t, res.Significant())
}

func TestANOVAConstantDecimalReturns(t *testing.T) {
	for _, v := range []float64{0.1, 1.1, -0.37} {
		var rs []models.JoinedRecord
		for i := 0; i < 3; i++ {
			rs = append(rs, rec(models.NewMoon, v))
		}
		for i := 0; i < 7; i++ {
			rs = append(rs, rec(models.FullMoon, v))
		}
		res, err := OneWayANOVA("SPY", rs)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.FStatistic, "v=%v", v)
		assert.Equal(t, 1.0, res.PValue, "v=%v", v)
	}
}

func TestANOVAKnownValue(t *testing.T) {
	var rs []models.JoinedRecord
	for _, v := range []float64{1, 2, 3} {
		rs = append(rs, rec(models.NewMoon, v))
	}
	for _, v := range []float64{4, 5, 6} {
		rs = append(rs, rec(models.FullMoon, v))
	}
	res, err := OneWayANOVA("SPY", rs)
	require.NoError(t, err)
	assert.InDelta(t, 13.5, res.FStatistic, 1e-9)
	assert.InDelta(t, 0.0213, res.PValue, 5e-4)
	assert.Equal(t, 1, res.DFBetween)
	assert.Equal(t, 4, res.DFWithin)
	assert.Equal(t, 2, res.Groups)
	assert.True(t, res.Significant())
	assert.Equal(t, "Significant returns variation by lunar phase", res.Conclusion())
}

func TestANOVAZeroWithinVariance(t *testing.T) {
	res, err := OneWayANOVA("SPY", []models.JoinedRecord{
		rec(models.NewMoon, 1), rec(models.NewMoon, 1), rec(models.FullMoon, 1), rec(models.FullMoon, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.FStatistic)
	assert.Equal(t, 1.0, res.PValue)

	res, err = OneWayANOVA("SPY", []models.JoinedRecord{
		rec(models.NewMoon, 1), rec(models.NewMoon, 1), rec(models.FullMoon, 2), rec(models.FullMoon, 2),
	})
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.FStatistic, 1))
	assert.Equal(t, 0.0, res.PValue)
}

func TestANOVAInsufficientData(t *testing.T) {
	_, err := OneWayANOVA("SPY", []models.JoinedRecord{rec(models.NewMoon, 1), rec(models.NewMoon, 2)})
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))

	_, err = OneWayANOVA("SPY", []models.JoinedRecord{rec(models.NewMoon, 1), rec(models.FullMoon, 2)})
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))
}

func TestCorrelatePerfectAndConstant(t *testing.T) {
	var rs []models.JoinedRecord
	for i := 0; i < 8; i++ {
		rs = append(rs, models.JoinedRecord{Phase: models.Phase(i), Close: float64(i * 10), Volume: 7, PercentReturn: float64(i * 10)})
	}
	c, err := Correlate("SPY", models.MetricClose, rs)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.Coefficient, 1e-12)
	assert.Equal(t, 8, c.N)

	_, err = Correlate("SPY", models.MetricVolume, rs)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))

	_, err = Correlate("SPY", models.MetricReturn, rs[:1])
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))
}

func TestAnalyzeIsolatesFailures(t *testing.T) {
	rs := []models.JoinedRecord{rec(models.NewMoon, 1), rec(models.NewMoon, 2)}
	a := NewEngine().Analyze("SPY", rs)

	assert.Equal(t, 2, a.Records)
	assert.Len(t, a.Phases, 1)
	assert.Nil(t, a.Anova)
	assert.Contains(t, a.Errors, "anova")
	assert.Contains(t, a.Errors, "correlation_return")
}

// Ten trading days of alternating +10%/-10% moves over two phases, split 5/4.
func TestEndToEndAlternatingSeries(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var points []models.PricePoint
	var calendar []models.LunarPhaseRecord
	price := 100.0
	for i := 0; i < 10; i++ {
		date := start.AddDate(0, 0, i)
		if i > 0 {
			if i%2 == 1 {
				price *= 1.1
			} else {
				price *= 0.9
			}
		}
		points = append(points, models.PricePoint{Symbol: "SPY", Date: date, Close: price, Volume: float64(1000 + i)})
		phase := models.NewMoon
		if i >= 5 {
			phase = models.FullMoon
		}
		calendar = append(calendar, models.LunarPhaseRecord{Date: date, Phase: phase})
	}

	joined, err := features.BuildJoined(points, calendar)
	require.NoError(t, err)
	require.Len(t, joined, 9)

	a := NewEngine().Analyze("SPY", joined)
	require.Len(t, a.Phases, 2)
	assert.Equal(t, 4, a.Phases[0].SampleCount)
	assert.Equal(t, 5, a.Phases[1].SampleCount)
	assert.Equal(t, models.NewMoon, a.Phases[0].Phase)
	assert.InDelta(t, 0.0, a.Phases[0].MeanReturn, 1e-6)
	assert.InDelta(t, 11.547005, a.Phases[0].StdDevReturn, 1e-6)
	assert.Equal(t, models.FullMoon, a.Phases[1].Phase)
	assert.InDelta(t, 2.0, a.Phases[1].MeanReturn, 1e-6)
	assert.InDelta(t, 10.954451, a.Phases[1].StdDevReturn, 1e-6)
	require.NotNil(t, a.Anova)
	assert.Equal(t, 2, a.Anova.Groups)
	assert.Equal(t, 7, a.Anova.DFWithin)
	_, ok := a.Correlation(models.MetricReturn)
	assert.True(t, ok)
}
