package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sync"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"LunarPull/internal/domain/models"
)

const chartDPI = 96

var (
	barUp     = color.RGBA{76, 114, 176, 255}
	barDown   = color.RGBA{196, 78, 82, 255}
	lightGrey = color.RGBA{235, 235, 235, 255}

	fontsOnce sync.Once
	fontsErr  error
)

// chartFont is the Go font family, registered with the plot font cache.
var chartFont = font.Font{Typeface: "Go"}

func registerFonts() error {
	fontsOnce.Do(func() {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("parse go regular font: %w", err)
			return
		}
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("parse go bold font: %w", err)
			return
		}
		boldFont := chartFont
		boldFont.Weight = xfont.WeightBold
		font.DefaultCache.Add(font.Collection{
			{Font: chartFont, Face: regular},
			{Font: boldFont, Face: bold},
		})
		plot.DefaultFont = chartFont
	})
	return fontsErr
}

func newPlot(title string) (*plot.Plot, error) {
	if err := registerFonts(); err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	return p, nil
}

// encodePNG renders p onto a w x h point canvas.
func encodePNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(chartDPI))
	p.Draw(draw.New(c))
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func contrast(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	if 0.299*float64(r>>8)+0.587*float64(g>>8)+0.114*float64(b>>8) < 128 {
		return color.White
	}
	return color.Black
}

// correlationGrid is the instrument x metric coefficient matrix. Column c is a
// metric, row r an instrument counted from the bottom of the chart.
type correlationGrid struct {
	metrics []models.Metric
	rows    []models.InstrumentAnalysis
}

func (g correlationGrid) Dims() (c, r int) { return len(g.metrics), len(g.rows) }
func (g correlationGrid) X(c int) float64  { return float64(c) }
func (g correlationGrid) Y(r int) float64  { return float64(r) }

func (g correlationGrid) Z(c, r int) float64 {
	v, ok := g.rows[r].Correlation(g.metrics[c])
	if !ok {
		return math.NaN()
	}
	return v
}

// Heatmap renders the phase correlation of every metric per instrument.
// Cells that could not be computed are grey and labelled n/a.
func Heatmap(run models.AnalysisRun) ([]byte, error) {
	p, err := newPlot("Correlation with Lunar Phase")
	if err != nil {
		return nil, err
	}

	// first instrument on top
	rows := make([]models.InstrumentAnalysis, 0, len(run.Instruments))
	for i := len(run.Instruments) - 1; i >= 0; i-- {
		rows = append(rows, run.Instruments[i])
	}
	if len(rows) == 0 {
		rows = append(rows, models.InstrumentAnalysis{Symbol: "no data"})
	}
	grid := correlationGrid{metrics: models.Metrics(), rows: rows}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(grid, cm.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = lightGrey
	p.Add(hm)

	var (
		xys    plotter.XYs
		labels []string
		styles []text.Style
	)
	cols, nrows := grid.Dims()
	for r := 0; r < nrows; r++ {
		for c := 0; c < cols; c++ {
			v := grid.Z(c, r)
			label, bg := "n/a", color.Color(lightGrey)
			if !math.IsNaN(v) {
				label = fmt.Sprintf("%.2f", v)
				if bg, err = cm.At(v); err != nil {
					return nil, fmt.Errorf("heatmap colour: %w", err)
				}
			}
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, label)
			styles = append(styles, text.Style{
				Color:   contrast(bg),
				Font:    font.From(chartFont, vg.Points(11)),
				XAlign:  text.XCenter,
				YAlign:  text.YCenter,
				Handler: plot.DefaultTextHandler,
			})
		}
	}
	cells, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("heatmap labels: %w", err)
	}
	cells.TextStyle = styles
	p.Add(cells)

	metricNames := make([]string, len(grid.metrics))
	for i, m := range grid.metrics {
		metricNames[i] = metricLabels[m]
	}
	symbols := make([]string, len(rows))
	for i, a := range rows {
		symbols[i] = a.Symbol
	}
	p.NominalX(metricNames...)
	p.NominalY(symbols...)

	h := vg.Points(float64(90 + 36*len(rows)))
	return encodePNG(p, vg.Points(480), h)
}

// percentTicks labels the default ticks as percentages.
func percentTicks(lo, hi float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(lo, hi)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = fmt.Sprintf("%.2f%%", ticks[i].Value)
		}
	}
	return ticks
}

// BarChart renders the cross-instrument mean daily return for every phase in
// fixed ordinal order. Phases with no data are drawn as empty slots.
func BarChart(run models.AnalysisRun) ([]byte, error) {
	p, err := newPlot("Average Stock Returns by Lunar Phase (All ETFs)")
	if err != nil {
		return nil, err
	}
	p.X.Label.Text = "Lunar Phase"
	p.Y.Label.Text = "Mean daily return"
	p.Y.Tick.Marker = plot.TickerFunc(percentTicks)

	avg := PhaseAverages(run)
	maxAbs := 0.0
	for _, v := range avg {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if maxAbs == 0 {
		maxAbs = 1
	}
	maxAbs *= 1.15

	phases := models.AllPhases()
	up := make(plotter.Values, len(phases))
	down := make(plotter.Values, len(phases))
	names := make([]string, len(phases))
	var (
		xys    plotter.XYs
		labels []string
	)
	for i, ph := range phases {
		names[i] = ph.String()
		v, ok := avg[ph]
		if !ok {
			continue
		}
		pad := 0.05 * maxAbs
		if v < 0 {
			down[i] = v
			pad = -pad
		} else {
			up[i] = v
		}
		xys = append(xys, plotter.XY{X: float64(i), Y: v + pad})
		labels = append(labels, fmt.Sprintf("%.2f%%", v))
	}

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)

	for _, series := range []struct {
		values plotter.Values
		fill   color.Color
	}{{up, barUp}, {down, barDown}} {
		bars, err := plotter.NewBarChart(series.values, vg.Points(40))
		if err != nil {
			return nil, fmt.Errorf("bar chart: %w", err)
		}
		bars.Color = series.fill
		bars.LineStyle.Width = 0
		p.Add(bars)
	}

	zero, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: 0}, {X: float64(len(phases)) - 0.5, Y: 0}})
	if err != nil {
		return nil, fmt.Errorf("zero line: %w", err)
	}
	zero.LineStyle.Color = color.Black
	p.Add(zero)

	if len(xys) > 0 {
		values, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return nil, fmt.Errorf("bar labels: %w", err)
		}
		for i := range values.TextStyle {
			values.TextStyle[i].XAlign = text.XCenter
			values.TextStyle[i].YAlign = text.YCenter
		}
		p.Add(values)
	}

	p.NominalX(names...)
	p.Y.Min, p.Y.Max = -maxAbs, maxAbs
	return encodePNG(p, vg.Points(720), vg.Points(405))
}
