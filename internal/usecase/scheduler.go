package usecase

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	applogger "LunarPull/pkg/logger"
)

// RunFunc is one scheduled execution.
type RunFunc func(ctx context.Context) error

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec is a five-field cron expression or descriptor.
func ValidateSchedule(spec string) error {
	if _, err := scheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler runs the pipeline on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	run      RunFunc
	log      *applogger.Logger
}

func NewScheduler(schedule string, run RunFunc, log *applogger.Logger) (*Scheduler, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}
	if log == nil {
		log = applogger.NewNop()
	}
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, schedule: schedule, run: run, log: log}, nil
}

// Start blocks until ctx is cancelled, then waits for a running job to end.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.schedule, func() {
		s.log.Info("scheduled run triggered", applogger.String("schedule", s.schedule))
		if err := s.run(ctx); err != nil {
			s.log.Error("scheduled run failed", applogger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("add schedule: %w", err)
	}
	s.cron.Start()
	s.log.Info("scheduler started",
		applogger.String("schedule", s.schedule),
		applogger.Time("next_run", s.cron.Entry(id).Next),
	)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

// cronLogger routes cron's own events to the application logger. Skipped
// overlapping runs are warnings and recovered panics are errors.
type cronLogger struct {
	log *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		c.log.Warn("scheduled run skipped, previous run still active", kvFields(keysAndValues)...)
		return
	}
	c.log.Debug("cron "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron "+msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	out := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, applogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}

var _ cron.Logger = cronLogger{}
