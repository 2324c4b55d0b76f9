package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	drepo "LunarPull/internal/domain/repository"
	dsvc "LunarPull/internal/domain/service"
	"LunarPull/internal/services/features"
	"LunarPull/internal/services/lunar"
	"LunarPull/internal/services/prices"
	"LunarPull/internal/services/report"
	"LunarPull/pkg/csvio"
	applogger "LunarPull/pkg/logger"
	"LunarPull/pkg/util"
)

const (
	CalendarFile    = "lunar_phases.csv"
	LatestFilesList = "latest_files.txt"
)

// PipelineConfig holds the run-level settings of the batch job.
type PipelineConfig struct {
	Instruments    []models.Instrument
	Range          func(now time.Time) (time.Time, time.Time, error)
	DataDir        string
	ReportDir      string
	LunarContainer string
	StockContainer string
	// StorePrices copies fetched prices into the warehouse; off when the warehouse is the source.
	StorePrices    bool
	Timeout        time.Duration
	PushgatewayURL string
	MetricsJob     string
}

// MetricsPusher is implemented by the pipeline's metrics recorder.
type MetricsPusher interface {
	MarkRun(unix float64)
	Push(ctx context.Context, url, job string) error
}

// Pipeline runs one end-to-end analysis: calendar, prices, join, statistics,
// persistence and report. It is strictly sequential.
type Pipeline struct {
	cfg       PipelineConfig
	resolver  dsvc.PhaseResolver
	prices    drepo.PriceSource
	warehouse drepo.PriceStore
	store     drepo.AnalysisStore
	blobs     drepo.BlobStore
	pub       drepo.Publisher
	engine    dsvc.StatsEngine
	renderer  dsvc.ReportRenderer
	metrics   drepo.Metrics
	pusher    MetricsPusher
	log       *applogger.Logger

	now   func() time.Time
	newID func() string
}

// NewPipeline wires the run. warehouse, blobs and pusher may be nil.
func NewPipeline(
	cfg PipelineConfig,
	resolver dsvc.PhaseResolver,
	priceSource drepo.PriceSource,
	warehouse drepo.PriceStore,
	store drepo.AnalysisStore,
	blobs drepo.BlobStore,
	pub drepo.Publisher,
	engine dsvc.StatsEngine,
	renderer dsvc.ReportRenderer,
	metrics drepo.Metrics,
	pusher MetricsPusher,
	log *applogger.Logger,
) *Pipeline {
	if log == nil {
		log = applogger.NewNop()
	}
	return &Pipeline{
		cfg: cfg, resolver: resolver, prices: priceSource, warehouse: warehouse,
		store: store, blobs: blobs, pub: pub, engine: engine, renderer: renderer,
		metrics: metrics, pusher: pusher, log: log,
		now: time.Now, newID: uuid.NewString,
	}
}

func (p *Pipeline) stage(name string, start time.Time) {
	p.metrics.RecordStage(name, time.Since(start).Seconds())
}

func (p *Pipeline) fail(kindErr error) {
	p.metrics.RecordError(string(apperr.KindOf(kindErr)))
}

// abort logs why the run stopped and passes run and err through.
func (p *Pipeline) abort(run models.AnalysisRun, err error) (models.AnalysisRun, error) {
	p.log.Error("analysis run aborted",
		applogger.String("run_id", run.RunID),
		applogger.String("kind", string(apperr.KindOf(err))),
		applogger.Error(err),
	)
	return run, err
}

// Run executes the analysis. It fails only when no calendar can be produced
// or no instrument yields joined data; every other failure is logged and
// isolated to its instrument or artifact.
func (p *Pipeline) Run(ctx context.Context) (models.AnalysisRun, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	now := p.now()
	start, end, err := p.cfg.Range(now)
	if err != nil {
		return p.abort(models.AnalysisRun{}, apperr.Data("run range", err))
	}

	run := models.AnalysisRun{
		RunID:        p.newID(),
		AnalysisDate: util.DateOf(now),
		Start:        start,
		End:          end,
		Skipped:      map[string]string{},
	}
	log := p.log
	log.Info("analysis run started",
		applogger.String("run_id", run.RunID),
		applogger.Date("start", start),
		applogger.Date("end", end),
		applogger.Int("instruments", len(p.cfg.Instruments)),
	)
	defer p.finish(ctx, &run)

	t0 := time.Now()
	calendar, source, err := p.resolver.Resolve(ctx, start, end)
	p.stage("resolve", t0)
	if err != nil {
		p.fail(err)
		return p.abort(run, fmt.Errorf("resolve phase calendar: %w", err))
	}
	run.PhaseSource = source
	run.CalendarDays = len(calendar)
	p.metrics.RecordPhaseSource(source)
	p.metrics.RecordRecords("calendar", "", len(calendar))

	written := p.storeCalendar(ctx, calendar)

	for _, inst := range p.cfg.Instruments {
		if err := ctx.Err(); err != nil {
			return p.abort(run, fmt.Errorf("run interrupted: %w", err))
		}
		a, file, err := p.analyzeInstrument(ctx, run, inst, calendar)
		if file != "" {
			written = append(written, file)
		}
		if err != nil {
			p.fail(err)
			run.Skipped[inst.Symbol] = err.Error()
			log.Warn("instrument skipped",
				applogger.String("symbol", inst.Symbol),
				applogger.String("kind", string(apperr.KindOf(err))),
				applogger.Error(err),
			)
			continue
		}
		run.Instruments = append(run.Instruments, a)
	}

	p.writeLatestFiles(written)

	if len(run.Instruments) == 0 {
		return p.abort(run, apperr.InsufficientDataf("run", "no instrument yielded joined data (%d skipped)", len(run.Skipped)))
	}

	run.Diagnostics = diagnostics(log.Collector())
	if err := p.pub.PublishDiagnostics(ctx, run.RunID, run.Diagnostics); err != nil {
		log.Error("publish diagnostics failed", applogger.Error(err))
	}
	p.renderReport(ctx, run)

	log.Info("analysis run finished",
		applogger.String("run_id", run.RunID),
		applogger.String("phase_source", run.PhaseSource),
		applogger.Int("analyzed", len(run.Instruments)),
		applogger.Int("skipped", len(run.Skipped)),
	)
	return run, nil
}

func (p *Pipeline) storeCalendar(ctx context.Context, calendar []models.LunarPhaseRecord) []string {
	t0 := time.Now()
	defer p.stage("store_calendar", t0)

	var written []string
	path := filepath.Join(p.cfg.DataDir, CalendarFile)
	data, err := csvio.WriteFile(path, lunar.CalendarTable(calendar))
	if err != nil {
		p.log.Error("write calendar csv failed", applogger.String("path", path), applogger.Error(err))
	} else {
		written = append(written, path)
		p.upload(ctx, p.cfg.LunarContainer, CalendarFile, data)
	}

	if err := p.store.SavePhaseCalendar(ctx, calendar); err != nil {
		p.fail(err)
		p.log.Error("save phase calendar failed", applogger.Int("days", len(calendar)), applogger.Error(err))
	} else {
		p.metrics.RecordRecords("sql_calendar", "", len(calendar))
	}
	return written
}

func (p *Pipeline) upload(ctx context.Context, container, name string, data []byte) {
	if p.blobs == nil {
		return
	}
	if err := p.blobs.Upload(ctx, container, name, data); err != nil {
		p.fail(err)
		p.log.Error("blob upload failed",
			applogger.String("container", container),
			applogger.String("blob", name),
			applogger.Error(err),
		)
	}
}

// analyzeInstrument fetches, stores, joins and analyses one symbol. The
// returned path is the price extract written, if any.
func (p *Pipeline) analyzeInstrument(ctx context.Context, run models.AnalysisRun, inst models.Instrument, calendar []models.LunarPhaseRecord) (models.InstrumentAnalysis, string, error) {
	sym := inst.Symbol
	t0 := time.Now()
	points, err := p.prices.FetchPrices(ctx, sym, run.Start, run.End)
	p.stage("fetch_prices", t0)
	if err != nil {
		return models.InstrumentAnalysis{}, "", fmt.Errorf("fetch prices: %w", err)
	}
	if len(points) == 0 {
		return models.InstrumentAnalysis{}, "", apperr.InsufficientDataf("fetch prices", "%s: no price data in range", sym)
	}
	p.metrics.RecordRecords("prices", sym, len(points))

	file := p.storePrices(ctx, sym, run.End, points)

	joined, err := features.BuildJoined(points, calendar)
	if err != nil {
		return models.InstrumentAnalysis{}, file, err
	}
	if len(joined) == 0 {
		return models.InstrumentAnalysis{}, file, apperr.InsufficientDataf("join", "%s: no trading day matched the calendar", sym)
	}
	p.metrics.RecordRecords("joined", sym, len(joined))

	t1 := time.Now()
	a := p.engine.Analyze(sym, joined)
	a.Name = inst.Name
	p.stage("analyze", t1)
	for stat, reason := range a.Errors {
		p.log.Warn("statistic not computed",
			applogger.String("symbol", sym),
			applogger.String("statistic", stat),
			applogger.String("reason", reason),
		)
	}
	if a.Anova != nil {
		p.metrics.RecordPValue(sym, a.Anova.PValue)
	}

	p.persistAnalysis(ctx, run, a)
	return a, file, nil
}

// storeWarehouse appends only the days newer than what the warehouse holds.
func (p *Pipeline) storeWarehouse(ctx context.Context, sym string, points []models.PricePoint) {
	fresh := points
	latest, ok, err := p.warehouse.LatestDate(ctx, sym)
	if err != nil {
		p.log.Warn("warehouse latest date unknown, storing all", applogger.String("symbol", sym), applogger.Error(err))
	} else if ok {
		fresh = fresh[:0:0]
		for _, pt := range points {
			if pt.Date.After(latest) {
				fresh = append(fresh, pt)
			}
		}
	}
	if len(fresh) == 0 {
		p.log.Debug("warehouse up to date", applogger.String("symbol", sym))
		return
	}
	if err := p.warehouse.StorePrices(ctx, fresh); err != nil {
		p.fail(err)
		p.log.Error("warehouse store failed", applogger.String("symbol", sym), applogger.Error(err))
	}
}

func (p *Pipeline) storePrices(ctx context.Context, sym string, end time.Time, points []models.PricePoint) string {
	t0 := time.Now()
	defer p.stage("store_prices", t0)

	if p.warehouse != nil && p.cfg.StorePrices {
		p.storeWarehouse(ctx, sym, points)
	}

	name := prices.FileName(sym, end)
	path := filepath.Join(p.cfg.DataDir, name)
	data, err := csvio.WriteFile(path, prices.PriceTable(points))
	if err != nil {
		p.log.Error("write price csv failed", applogger.String("symbol", sym), applogger.Error(err))
		path = ""
	} else {
		p.upload(ctx, p.cfg.StockContainer, name, data)
	}

	if err := p.store.SavePrices(ctx, points); err != nil {
		p.fail(err)
		p.log.Error("save prices failed", applogger.String("symbol", sym), applogger.Error(err))
	} else {
		p.metrics.RecordRecords("sql_prices", sym, len(points))
	}
	return path
}

func (p *Pipeline) persistAnalysis(ctx context.Context, run models.AnalysisRun, a models.InstrumentAnalysis) {
	t0 := time.Now()
	defer p.stage("persist", t0)

	rows := make([]models.PhaseReturnRow, 0, len(a.Phases))
	for _, s := range a.Phases {
		rows = append(rows, models.PhaseReturnRow{
			AnalysisDate:  run.AnalysisDate,
			Symbol:        a.Symbol,
			LunarPhase:    s.Phase.String(),
			AverageReturn: s.MeanReturn,
			StdDevReturn:  s.StdDevReturn,
			Count:         s.SampleCount,
		})
	}
	if err := p.store.SavePhaseReturns(ctx, rows); err != nil {
		p.fail(err)
		p.log.Error("save phase returns failed", applogger.String("symbol", a.Symbol), applogger.Error(err))
	}
	if err := p.store.UpsertSummary(ctx, a.Summary(run.AnalysisDate)); err != nil {
		p.fail(err)
		p.log.Error("upsert summary failed", applogger.String("symbol", a.Symbol), applogger.Error(err))
	}
	if err := p.pub.PublishAnalysis(ctx, run.RunID, a); err != nil {
		p.metrics.RecordError("publish")
		p.log.Error("publish analysis failed", applogger.String("symbol", a.Symbol), applogger.Error(err))
	}
}

func (p *Pipeline) writeLatestFiles(paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := os.MkdirAll(p.cfg.DataDir, 0o755); err != nil {
		p.log.Error("create data dir failed", applogger.Error(err))
		return
	}
	list := filepath.Join(p.cfg.DataDir, LatestFilesList)
	if err := os.WriteFile(list, []byte(strings.Join(paths, "\n")+"\n"), 0o644); err != nil {
		p.log.Error("write latest files list failed", applogger.Error(err))
	}
}

func (p *Pipeline) renderReport(ctx context.Context, run models.AnalysisRun) {
	t0 := time.Now()
	defer p.stage("report", t0)

	artifacts, err := p.renderer.Render(ctx, run)
	if err != nil {
		p.metrics.RecordError("report")
		p.log.Error("render report failed", applogger.Error(err))
		return
	}
	paths, err := report.WriteAll(p.cfg.ReportDir, artifacts)
	if err != nil {
		p.metrics.RecordError("report")
		p.log.Error("write report failed", applogger.Error(err))
		return
	}
	p.log.Info("report written", applogger.String("dir", p.cfg.ReportDir), applogger.Strings("files", paths))
}

// finish flushes run-scoped diagnostics and pushes metrics on every exit path.
func (p *Pipeline) finish(ctx context.Context, run *models.AnalysisRun) {
	flushCtx := context.WithoutCancel(ctx)
	if c := p.log.Collector(); c != nil {
		if err := c.Flush(flushCtx); err != nil {
			p.log.Error("flush run diagnostics failed", applogger.Error(err))
		}
	}
	if p.pusher == nil {
		return
	}
	p.pusher.MarkRun(float64(p.now().Unix()))
	if err := p.pusher.Push(flushCtx, p.cfg.PushgatewayURL, p.cfg.MetricsJob); err != nil {
		p.log.Error("push metrics failed", applogger.String("run_id", run.RunID), applogger.Error(err))
	}
}

// diagnostics converts the collector's aggregated warnings and errors.
func diagnostics(c *applogger.LogCollector) []models.Diagnostic {
	if c == nil {
		return nil
	}
	entries := c.Entries()
	out := make([]models.Diagnostic, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.Diagnostic{
			Level:   e.Level,
			Message: e.Message,
			Count:   e.Count,
			Context: fieldContext(e.Fields),
		})
	}
	if n := c.Dropped(); n > 0 {
		out = append(out, models.Diagnostic{Level: "warn", Message: "further distinct diagnostics dropped", Count: n})
	}
	return out
}

func fieldContext(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "error" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	if e, ok := fields["error"]; ok {
		parts = append(parts, fmt.Sprintf("error=%v", e))
	}
	return strings.Join(parts, " ")
}
