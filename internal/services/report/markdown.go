package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"LunarPull/internal/domain/models"
	"LunarPull/pkg/util"
)

const (
	FileMarkdown = "lunar_stock_analysis_report.md"
	FileHTML     = "lunar_stock_analysis_report.html"
	FilePDF      = "lunar_stock_analysis_report.pdf"
	FileHeatmap  = "correlation_heatmap.png"
	FileBarChart = "returns_by_lunar_phase.png"
	FileWorkbook = "lunar_phase_returns.xlsx"
)

const reportTitle = "Stock Market & Lunar Phase Analysis Report"

var metricLabels = map[models.Metric]string{
	models.MetricClose:  "Close Price",
	models.MetricVolume: "Volume",
	models.MetricReturn: "Returns",
}

func f4(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	}
	return fmt.Sprintf("%.4f", v)
}

func displayName(a models.InstrumentAnalysis) string {
	if a.Name == "" {
		return a.Symbol
	}
	return fmt.Sprintf("%s (%s)", a.Symbol, a.Name)
}

// PhaseAverages returns, per phase, the mean of each instrument's mean return.
// Instruments without observations in a phase do not contribute to it.
func PhaseAverages(run models.AnalysisRun) map[models.Phase]float64 {
	out := make(map[models.Phase]float64, models.PhaseCount)
	for _, p := range models.AllPhases() {
		var sum float64
		var n int
		for _, a := range run.Instruments {
			if s, ok := a.PhaseStat(p); ok {
				sum += s.MeanReturn
				n++
			}
		}
		if n > 0 {
			out[p] = sum / float64(n)
		}
	}
	return out
}

// Markdown renders the narrative report.
func Markdown(run models.AnalysisRun) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", reportTitle)
	fmt.Fprintf(&b, "*Generated on %s* (run `%s`)\n\n", util.DayKey(run.AnalysisDate), run.RunID)

	b.WriteString("## 1. Introduction\n\n")
	fmt.Fprintf(&b, "This report analyzes the relationship between lunar phases and stock market behavior for %d ETF(s) between %s and %s:\n\n",
		len(run.Instruments), util.DayKey(run.Start), util.DayKey(run.End))
	for _, a := range run.Instruments {
		fmt.Fprintf(&b, "- %s\n", displayName(a))
	}
	fmt.Fprintf(&b, "\nLunar phases were sourced from `%s` and cover %d calendar days.\n\n", run.PhaseSource, run.CalendarDays)
	if len(run.Skipped) > 0 {
		b.WriteString("Instruments excluded from the analysis:\n\n")
		keys := make([]string, 0, len(run.Skipped))
		for k := range run.Skipped {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, run.Skipped[k])
		}
		b.WriteString("\n")
	}

	b.WriteString("## 2. Correlation Analysis\n\n")
	b.WriteString("Pearson correlation between the phase ordinal (New Moon = 0 ... Waning Crescent = 7) and each series:\n\n")
	for _, a := range run.Instruments {
		fmt.Fprintf(&b, "### %s Correlations\n", a.Symbol)
		for _, m := range models.Metrics() {
			if c, ok := a.Correlation(m); ok {
				fmt.Fprintf(&b, "- %s vs Lunar Phase: %s\n", metricLabels[m], f4(c))
			} else {
				fmt.Fprintf(&b, "- %s vs Lunar Phase: not computed (%s)\n", metricLabels[m], a.Errors["correlation_"+string(m)])
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("**Interpretation:** correlation values close to 0 indicate no meaningful relationship between lunar phases and stock metrics.\n\n")

	b.WriteString("## 3. Stock Returns by Lunar Phase\n\n")
	b.WriteString("Average daily returns (%) for each lunar phase:\n\n")
	writeReturnsTable(&b, run)

	b.WriteString("\n## 4. ANOVA Test Results\n\n")
	b.WriteString("One-way ANOVA of daily returns grouped by lunar phase:\n\n")
	significant := 0
	for _, a := range run.Instruments {
		fmt.Fprintf(&b, "### %s\n", a.Symbol)
		if a.Anova == nil {
			fmt.Fprintf(&b, "- Not computed: %s\n\n", a.Errors["anova"])
			continue
		}
		if a.Anova.Significant() {
			significant++
		}
		fmt.Fprintf(&b, "- F-statistic: %s\n", f4(a.Anova.FStatistic))
		fmt.Fprintf(&b, "- p-value: %s\n", f4(a.Anova.PValue))
		fmt.Fprintf(&b, "- Degrees of freedom: %d, %d\n", a.Anova.DFBetween, a.Anova.DFWithin)
		fmt.Fprintf(&b, "- Statistically significant (p < %.2f): %t\n\n", models.SignificanceLevel, a.Anova.Significant())
	}

	b.WriteString("## 5. Conclusion\n\n")
	writeConclusion(&b, run, significant)

	if len(run.Diagnostics) > 0 {
		b.WriteString("\n## 6. Run Diagnostics\n\n")
		b.WriteString("| Level | Message | Count | Context |\n|---|---|---|---|\n")
		for _, d := range run.Diagnostics {
			fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", d.Level, escapeCell(d.Message), d.Count, escapeCell(d.Context))
		}
	}
	return []byte(b.String())
}

func writeReturnsTable(b *strings.Builder, run models.AnalysisRun) {
	b.WriteString("| Lunar Phase |")
	sep := "|---|"
	for _, a := range run.Instruments {
		fmt.Fprintf(b, " %s |", a.Symbol)
		sep += "---:|"
	}
	b.WriteString(" Average (All ETFs) |\n")
	b.WriteString(sep + "---:|\n")

	avg := PhaseAverages(run)
	for _, p := range models.AllPhases() {
		fmt.Fprintf(b, "| %s |", p)
		for _, a := range run.Instruments {
			if s, ok := a.PhaseStat(p); ok {
				fmt.Fprintf(b, " %s |", f4(s.MeanReturn))
			} else {
				b.WriteString(" - |")
			}
		}
		if v, ok := avg[p]; ok {
			fmt.Fprintf(b, " %s |\n", f4(v))
		} else {
			b.WriteString(" - |\n")
		}
	}
}

func writeConclusion(b *strings.Builder, run models.AnalysisRun, significant int) {
	tested := 0
	maxAbs := 0.0
	for _, a := range run.Instruments {
		if a.Anova != nil {
			tested++
		}
		for _, c := range a.Correlations {
			maxAbs = math.Max(maxAbs, math.Abs(c.Coefficient))
		}
	}

	strength := "very weak"
	switch {
	case maxAbs >= 0.5:
		strength = "strong"
	case maxAbs >= 0.3:
		strength = "moderate"
	case maxAbs >= 0.1:
		strength = "weak"
	}
	fmt.Fprintf(b, "1. **Correlation Analysis:** the largest absolute correlation between lunar phase and any stock metric is %s, which is %s.\n\n", f4(maxAbs), strength)
	fmt.Fprintf(b, "2. **Statistical Significance:** %d of %d tested ETF(s) show significant returns variation by lunar phase (p < %.2f).\n\n", significant, tested, models.SignificanceLevel)

	verdict := "The data does not support the hypothesis that lunar phases have a meaningful impact on stock market behavior."
	if tested > 0 && significant*2 > tested {
		verdict = "Returns differ significantly across lunar phases for most ETFs; the pattern warrants further out-of-sample testing."
	}
	fmt.Fprintf(b, "3. **Overall Assessment:** %s\n", verdict)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
