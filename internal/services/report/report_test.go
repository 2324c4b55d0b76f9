package report

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"LunarPull/internal/domain/models"
)

func sampleRun() models.AnalysisRun {
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	return models.AnalysisRun{
		RunID:        "run-1",
		AnalysisDate: day,
		Start:        day.AddDate(-5, 0, 0),
		End:          day,
		PhaseSource:  models.SourceUSNO,
		CalendarDays: 1827,
		Instruments: []models.InstrumentAnalysis{
			{
				Symbol: "SPY", Name: "S&P 500", Records: 1250,
				Phases: []models.PhaseStatistic{
					{Symbol: "SPY", Phase: models.NewMoon, MeanReturn: 0.10, SampleCount: 150},
					{Symbol: "SPY", Phase: models.FullMoon, MeanReturn: -0.20, SampleCount: 150},
				},
				Anova: &models.AnovaResult{Symbol: "SPY", FStatistic: 1.2345, PValue: 0.3, DFBetween: 7, DFWithin: 1242, Groups: 8},
				Correlations: []models.CorrelationResult{
					{Symbol: "SPY", Metric: models.MetricClose, Coefficient: 0.0123, N: 1250},
					{Symbol: "SPY", Metric: models.MetricReturn, Coefficient: -0.05, N: 1250},
				},
				Errors: map[string]string{"correlation_volume": "series is constant"},
			},
			{
				Symbol: "QQQ", Name: "NASDAQ", Records: 1250,
				Phases: []models.PhaseStatistic{
					{Symbol: "QQQ", Phase: models.NewMoon, MeanReturn: 0.30, SampleCount: 150},
				},
				Errors: map[string]string{"anova": "1 phase group(s), need at least 2"},
			},
		},
		Skipped:     map[string]string{"IWM": "no price data"},
		Diagnostics: []models.Diagnostic{{Level: "warn", Message: "price row rejected", Count: 3}},
	}
}

func TestMarkdownSections(t *testing.T) {
	md := string(Markdown(sampleRun()))

	assert.True(t, strings.HasPrefix(md, "# Stock Market & Lunar Phase Analysis Report"))
	assert.Contains(t, md, "- SPY (S&P 500)")
	assert.Contains(t, md, "### SPY Correlations")
	assert.Contains(t, md, "- Close Price vs Lunar Phase: 0.0123")
	assert.Contains(t, md, "- Volume vs Lunar Phase: not computed (series is constant)")
	assert.Contains(t, md, "| Lunar Phase | SPY | QQQ | Average (All ETFs) |")
	assert.Contains(t, md, "| New Moon | 0.1000 | 0.3000 | 0.2000 |")
	assert.Contains(t, md, "| Full Moon | -0.2000 | - | -0.2000 |")
	assert.Contains(t, md, "| Waxing Crescent | - | - | - |")
	assert.Contains(t, md, "- F-statistic: 1.2345")
	assert.Contains(t, md, "- Statistically significant (p < 0.05): false")
	assert.Contains(t, md, "- Not computed: 1 phase group(s), need at least 2")
	assert.Contains(t, md, "- IWM: no price data")
	assert.Contains(t, md, "## 6. Run Diagnostics")
}

func TestPhaseAveragesSkipMissing(t *testing.T) {
	avg := PhaseAverages(sampleRun())
	assert.InDelta(t, 0.2, avg[models.NewMoon], 1e-12)
	assert.InDelta(t, -0.2, avg[models.FullMoon], 1e-12)
	_, ok := avg[models.LastQuarter]
	assert.False(t, ok)
}

func TestChartsArePNG(t *testing.T) {
	run := sampleRun()
	for name, fn := range map[string]func(models.AnalysisRun) ([]byte, error){"heatmap": Heatmap, "bars": BarChart} {
		b, err := fn(run)
		require.NoError(t, err, name)
		cfg, err := png.DecodeConfig(bytes.NewReader(b))
		require.NoError(t, err, name)
		assert.Greater(t, cfg.Width, 0, name)
	}

	bars, err := BarChart(run)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(bars))
	require.NoError(t, err)
	assert.Equal(t, 960, cfg.Width)
	assert.Equal(t, 540, cfg.Height)

	_, err = Heatmap(models.AnalysisRun{})
	assert.NoError(t, err)
	_, err = BarChart(models.AnalysisRun{})
	assert.NoError(t, err)
}

func TestRenderProducesAllArtifacts(t *testing.T) {
	out, err := NewRenderer(nil).Render(context.Background(), sampleRun())
	require.NoError(t, err)

	for _, name := range []string{FileMarkdown, FileHTML, FilePDF, FileHeatmap, FileBarChart, FileWorkbook} {
		assert.NotEmpty(t, out[name], name)
	}
	assert.True(t, bytes.HasPrefix(out[FilePDF], []byte("%PDF")))
	assert.Contains(t, string(out[FileHTML]), "<table>")
	assert.Contains(t, string(out[FileHTML]), FileHeatmap)

	wb, err := excelize.OpenReader(bytes.NewReader(out[FileWorkbook]))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(sheetReturns)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"AnalysisDate", "ETF", "LunarPhase", "AverageReturn", "StdDevReturn", "Count"}, rows[0])
	assert.Equal(t, "Full Moon", rows[2][2])
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := WriteAll(dir, map[string][]byte{"b.md": []byte("b"), "a.png": []byte("a")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.md")}, paths)

	b, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "b", string(b))
}
