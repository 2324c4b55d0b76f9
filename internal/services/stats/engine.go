// Package stats computes per-phase return statistics, a one-way ANOVA of
// returns across phases, and Pearson correlations against the phase ordinal.
// Everything here is a pure function of one instrument's joined records.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	domsvc "LunarPull/internal/domain/service"
)

// zeroTolerance absorbs rounding noise in sums of squares over identical values.
const zeroTolerance = 1e-12

// groupReturns buckets returns by phase, indexed by ordinal.
func groupReturns(records []models.JoinedRecord) [models.PhaseCount][]float64 {
	var groups [models.PhaseCount][]float64
	for _, r := range records {
		if !r.Phase.Valid() {
			continue
		}
		groups[r.Phase] = append(groups[r.Phase], r.PercentReturn)
	}
	return groups
}

// PhaseStats returns mean, sample standard deviation and count per phase,
// in phase order. Phases without observations are omitted; a single
// observation has standard deviation 0.
func PhaseStats(symbol string, records []models.JoinedRecord) []models.PhaseStatistic {
	groups := groupReturns(records)
	out := make([]models.PhaseStatistic, 0, models.PhaseCount)
	for i, xs := range groups {
		if len(xs) == 0 {
			continue
		}
		sd := 0.0
		if len(xs) > 1 {
			sd = stat.StdDev(xs, nil)
		}
		out = append(out, models.PhaseStatistic{
			Symbol:       symbol,
			Phase:        models.Phase(i),
			MeanReturn:   stat.Mean(xs, nil),
			StdDevReturn: sd,
			SampleCount:  len(xs),
		})
	}
	return out
}

// OneWayANOVA tests whether mean returns differ across phases.
// F = MSB/MSW with p = P(F(k-1, N-k) > F). With zero within-group variance the
// result is F=0, p=1 when the group means are equal too, otherwise F=+Inf, p=0.
// Sums of squares below zeroTolerance relative to Σx² count as zero.
func OneWayANOVA(symbol string, records []models.JoinedRecord) (models.AnovaResult, error) {
	groups := groupReturns(records)

	var (
		k, n         int
		total, sumSq float64
	)
	for _, xs := range groups {
		if len(xs) == 0 {
			continue
		}
		k++
		n += len(xs)
		for _, x := range xs {
			total += x
			sumSq += x * x
		}
	}
	if k < 2 {
		return models.AnovaResult{}, apperr.InsufficientDataf("anova", "%s: %d phase group(s), need at least 2", symbol, k)
	}
	if n-k <= 0 {
		return models.AnovaResult{}, apperr.InsufficientDataf("anova", "%s: no within-group degrees of freedom (N=%d, k=%d)", symbol, n, k)
	}

	grand := total / float64(n)
	var ssb, ssw float64
	for _, xs := range groups {
		if len(xs) == 0 {
			continue
		}
		m := stat.Mean(xs, nil)
		ssb += float64(len(xs)) * (m - grand) * (m - grand)
		for _, x := range xs {
			ssw += (x - m) * (x - m)
		}
	}

	eps := zeroTolerance * sumSq
	res := models.AnovaResult{Symbol: symbol, DFBetween: k - 1, DFWithin: n - k, Groups: k}
	switch {
	case ssw <= eps && ssb <= eps:
		res.FStatistic, res.PValue = 0, 1
	case ssw <= eps:
		res.FStatistic, res.PValue = math.Inf(1), 0
	default:
		msb := ssb / float64(res.DFBetween)
		msw := ssw / float64(res.DFWithin)
		res.FStatistic = msb / msw
		res.PValue = distuv.F{D1: float64(res.DFBetween), D2: float64(res.DFWithin)}.Survival(res.FStatistic)
	}
	return res, nil
}

func metricValue(r models.JoinedRecord, m models.Metric) float64 {
	switch m {
	case models.MetricClose:
		return r.Close
	case models.MetricVolume:
		return r.Volume
	default:
		return r.PercentReturn
	}
}

// Correlate returns the Pearson coefficient between the phase ordinal and metric.
func Correlate(symbol string, metric models.Metric, records []models.JoinedRecord) (models.CorrelationResult, error) {
	if len(records) < 2 {
		return models.CorrelationResult{}, apperr.InsufficientDataf("correlation", "%s %s: %d point(s)", symbol, metric, len(records))
	}
	xs := make([]float64, len(records))
	ys := make([]float64, len(records))
	for i, r := range records {
		xs[i] = float64(r.Phase.Ordinal())
		ys[i] = metricValue(r, metric)
	}
	if stat.Variance(xs, nil) == 0 {
		return models.CorrelationResult{}, apperr.InsufficientDataf("correlation", "%s %s: phase ordinal is constant", symbol, metric)
	}
	if stat.Variance(ys, nil) == 0 {
		return models.CorrelationResult{}, apperr.InsufficientDataf("correlation", "%s %s: series is constant", symbol, metric)
	}
	c := stat.Correlation(xs, ys, nil)
	if math.IsNaN(c) {
		return models.CorrelationResult{}, apperr.InsufficientDataf("correlation", "%s %s: undefined coefficient", symbol, metric)
	}
	return models.CorrelationResult{Symbol: symbol, Metric: metric, Coefficient: c, N: len(records)}, nil
}

// Engine runs every statistic for an instrument, isolating failures.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Analyze computes phase statistics, ANOVA and all correlations. A failing
// statistic is recorded in Errors and does not affect the others.
func (e *Engine) Analyze(symbol string, records []models.JoinedRecord) models.InstrumentAnalysis {
	a := models.InstrumentAnalysis{
		Symbol:  symbol,
		Records: len(records),
		Phases:  PhaseStats(symbol, records),
		Errors:  map[string]string{},
	}
	if len(records) > 0 {
		a.From, a.To = records[0].Date, records[0].Date
		for _, r := range records[1:] {
			if r.Date.Before(a.From) {
				a.From = r.Date
			}
			if r.Date.After(a.To) {
				a.To = r.Date
			}
		}
	}

	if res, err := OneWayANOVA(symbol, records); err != nil {
		a.Errors["anova"] = err.Error()
	} else {
		a.Anova = &res
	}

	for _, m := range models.Metrics() {
		c, err := Correlate(symbol, m, records)
		if err != nil {
			a.Errors["correlation_"+string(m)] = err.Error()
			continue
		}
		a.Correlations = append(a.Correlations, c)
	}

	if len(a.Errors) == 0 {
		a.Errors = nil
	}
	return a
}

var _ domsvc.StatsEngine = (*Engine)(nil)
