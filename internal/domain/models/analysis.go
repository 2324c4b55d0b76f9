package models

import (
	"time"
)

// SignificanceLevel is the fixed ANOVA threshold.
const SignificanceLevel = 0.05

// Metric names a series correlated against the phase ordinal.
type Metric string

const (
	MetricClose  Metric = "close"
	MetricVolume Metric = "volume"
	MetricReturn Metric = "return"
)

// Metrics returns the correlated series in report order.
func Metrics() []Metric { return []Metric{MetricClose, MetricVolume, MetricReturn} }

type PhaseStatistic struct {
	Symbol       string  `json:"symbol"`
	Phase        Phase   `json:"phase"`
	MeanReturn   float64 `json:"mean_return"`
	StdDevReturn float64 `json:"std_dev_return"`
	SampleCount  int     `json:"sample_count"`
}

type AnovaResult struct {
	Symbol     string  `json:"symbol"`
	FStatistic float64 `json:"f_statistic"`
	PValue     float64 `json:"p_value"`
	DFBetween  int     `json:"df_between"`
	DFWithin   int     `json:"df_within"`
	Groups     int     `json:"groups"`
}

// Significant reports whether the phase means differ at the fixed level.
func (a AnovaResult) Significant() bool { return a.PValue < SignificanceLevel }

// Conclusion is the sentence stored with the summary row.
func (a AnovaResult) Conclusion() string {
	if a.Significant() {
		return "Significant returns variation by lunar phase"
	}
	return "No significant returns variation by lunar phase"
}

type CorrelationResult struct {
	Symbol      string  `json:"symbol"`
	Metric      Metric  `json:"metric"`
	Coefficient float64 `json:"coefficient"`
	N           int     `json:"n"`
}

// InstrumentAnalysis is every statistic computed for one symbol in a run.
// Errors maps a statistic name to the reason it could not be computed.
type InstrumentAnalysis struct {
	Symbol       string              `json:"symbol"`
	Name         string              `json:"name,omitempty"`
	Records      int                 `json:"records"`
	From         time.Time           `json:"from"`
	To           time.Time           `json:"to"`
	Phases       []PhaseStatistic    `json:"phases"`
	Anova        *AnovaResult        `json:"anova,omitempty"`
	Correlations []CorrelationResult `json:"correlations"`
	Errors       map[string]string   `json:"errors,omitempty"`
}

// Correlation returns the coefficient for metric, if it was computed.
func (a InstrumentAnalysis) Correlation(m Metric) (float64, bool) {
	for _, c := range a.Correlations {
		if c.Metric == m {
			return c.Coefficient, true
		}
	}
	return 0, false
}

// PhaseStat returns the statistic row for phase p, if present.
func (a InstrumentAnalysis) PhaseStat(p Phase) (PhaseStatistic, bool) {
	for _, s := range a.Phases {
		if s.Phase == p {
			return s, true
		}
	}
	return PhaseStatistic{}, false
}

// AnalysisRun is the outcome of one pipeline execution.
type AnalysisRun struct {
	RunID        string               `json:"run_id"`
	AnalysisDate time.Time            `json:"analysis_date"`
	Start        time.Time            `json:"start"`
	End          time.Time            `json:"end"`
	PhaseSource  string               `json:"phase_source"`
	CalendarDays int                  `json:"calendar_days"`
	Instruments  []InstrumentAnalysis `json:"instruments"`
	Skipped      map[string]string    `json:"skipped,omitempty"`
	Diagnostics  []Diagnostic         `json:"diagnostics,omitempty"`
}

// Diagnostic is an aggregated warning or error raised during a run.
type Diagnostic struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Count   int    `json:"count"`
	Context string `json:"context,omitempty"`
}

// InstrumentSummary is the per-instrument row kept in the relational store.
// Correlations are nil when they could not be computed.
type InstrumentSummary struct {
	AnalysisDate      time.Time `db:"AnalysisDate" json:"analysis_date"`
	Symbol            string    `db:"ETF" json:"symbol"`
	CorrelationClose  *float64  `db:"Correlation_Close" json:"correlation_close"`
	CorrelationVolume *float64  `db:"Correlation_Volume" json:"correlation_volume"`
	CorrelationReturn *float64  `db:"Correlation_Return" json:"correlation_return"`
	FStatistic        *float64  `db:"ANOVA_F_Statistic" json:"anova_f_statistic"`
	PValue            *float64  `db:"ANOVA_P_Value" json:"anova_p_value"`
	Conclusion        string    `db:"Conclusion" json:"conclusion"`
}

// Summary flattens an analysis into its relational summary row.
func (a InstrumentAnalysis) Summary(analysisDate time.Time) InstrumentSummary {
	s := InstrumentSummary{AnalysisDate: analysisDate, Symbol: a.Symbol}
	pick := func(m Metric) *float64 {
		if v, ok := a.Correlation(m); ok {
			return &v
		}
		return nil
	}
	s.CorrelationClose = pick(MetricClose)
	s.CorrelationVolume = pick(MetricVolume)
	s.CorrelationReturn = pick(MetricReturn)
	if a.Anova != nil {
		f, p := a.Anova.FStatistic, a.Anova.PValue
		s.FStatistic, s.PValue = &f, &p
		s.Conclusion = a.Anova.Conclusion()
	} else {
		s.Conclusion = "ANOVA not computed"
	}
	return s
}

// PhaseReturnRow is one stored per-phase statistic.
type PhaseReturnRow struct {
	AnalysisDate  time.Time `db:"AnalysisDate" json:"analysis_date"`
	Symbol        string    `db:"ETF" json:"symbol"`
	LunarPhase    string    `db:"LunarPhase" json:"lunar_phase"`
	AverageReturn float64   `db:"AverageReturn" json:"average_return"`
	StdDevReturn  float64   `db:"StdDevReturn" json:"std_dev_return"`
	Count         int       `db:"Count" json:"count"`
}
