// Package report assembles the analysis report and its charts from a finished run.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"LunarPull/internal/domain/models"
	domsvc "LunarPull/internal/domain/service"
	applogger "LunarPull/pkg/logger"
)

// Renderer produces every report artifact of a run.
type Renderer struct {
	log *applogger.Logger
}

func NewRenderer(log *applogger.Logger) *Renderer {
	if log == nil {
		log = applogger.NewNop()
	}
	return &Renderer{log: log}
}

// Render returns the artifacts keyed by file name. Markdown and the two charts
// are required; a failing derived format is logged and left out.
func (r *Renderer) Render(ctx context.Context, run models.AnalysisRun) (map[string][]byte, error) {
	md := Markdown(run)
	out := map[string][]byte{FileMarkdown: md}

	heat, err := Heatmap(run)
	if err != nil {
		return nil, fmt.Errorf("render heatmap: %w", err)
	}
	out[FileHeatmap] = heat

	bars, err := BarChart(run)
	if err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	out[FileBarChart] = bars

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	derived := []struct {
		name string
		fn   func() ([]byte, error)
	}{
		{FileHTML, func() ([]byte, error) { return HTML(md) }},
		{FilePDF, func() ([]byte, error) {
			return PDF(md,
				Chart{Name: FileHeatmap, Title: "Correlation with Lunar Phase", PNG: heat},
				Chart{Name: FileBarChart, Title: "Average Stock Returns by Lunar Phase", PNG: bars},
			)
		}},
		{FileWorkbook, func() ([]byte, error) { return Workbook(run) }},
	}
	for _, d := range derived {
		b, err := d.fn()
		if err != nil {
			r.log.Warn("report format skipped", applogger.String("file", d.name), applogger.Error(err))
			continue
		}
		out[d.name] = b
	}

	r.log.Info("report rendered",
		applogger.String("run_id", run.RunID),
		applogger.Int("artifacts", len(out)),
		applogger.Int("instruments", len(run.Instruments)),
	)
	return out, nil
}

// WriteAll stores artifacts under dir and returns the written paths, sorted.
func WriteAll(dir string, artifacts map[string][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	paths := make([]string, 0, len(artifacts))
	for name, b := range artifacts {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, b, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

var _ domsvc.ReportRenderer = (*Renderer)(nil)
