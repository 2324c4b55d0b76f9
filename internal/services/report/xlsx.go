package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"LunarPull/internal/domain/models"
	"LunarPull/pkg/util"
)

const (
	sheetSummary = "Summary"
	sheetReturns = "Returns by Phase"
	sheetAverage = "Average by Phase"
)

// Workbook exports the summary rows and the per-phase statistics.
func Workbook(run models.AnalysisRun) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetReturns, sheetAverage} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	day := util.DayKey(run.AnalysisDate)
	summary := [][]any{{"AnalysisDate", "ETF", "Correlation_Close", "Correlation_Volume", "Correlation_Return", "ANOVA_F_Statistic", "ANOVA_P_Value", "Conclusion"}}
	for _, a := range run.Instruments {
		s := a.Summary(run.AnalysisDate)
		summary = append(summary, []any{day, s.Symbol, cell(s.CorrelationClose), cell(s.CorrelationVolume),
			cell(s.CorrelationReturn), cell(s.FStatistic), cell(s.PValue), s.Conclusion})
	}

	returns := [][]any{{"AnalysisDate", "ETF", "LunarPhase", "AverageReturn", "StdDevReturn", "Count"}}
	for _, a := range run.Instruments {
		for _, p := range a.Phases {
			returns = append(returns, []any{day, a.Symbol, p.Phase.String(), p.MeanReturn, p.StdDevReturn, p.SampleCount})
		}
	}

	avg := PhaseAverages(run)
	averages := [][]any{{"LunarPhase", "Average (All ETFs)"}}
	for _, p := range models.AllPhases() {
		if v, ok := avg[p]; ok {
			averages = append(averages, []any{p.String(), v})
		} else {
			averages = append(averages, []any{p.String(), nil})
		}
	}

	for sheet, rows := range map[string][][]any{sheetSummary: summary, sheetReturns: returns, sheetAverage: averages} {
		if err := writeRows(f, sheet, rows, header); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, header int) error {
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, header); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}

func cell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
