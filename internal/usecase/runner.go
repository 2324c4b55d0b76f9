package usecase

import (
	"context"

	applogger "LunarPull/pkg/logger"
)

// Runner drives the pipeline once or on its cron schedule.
type Runner struct {
	pipeline *Pipeline
	schedule string
	log      *applogger.Logger
}

func NewRunner(pipeline *Pipeline, schedule string, log *applogger.Logger) *Runner {
	if log == nil {
		log = applogger.NewNop()
	}
	return &Runner{pipeline: pipeline, schedule: schedule, log: log}
}

// Scheduled reports whether a cron schedule is configured.
func (r *Runner) Scheduled() bool { return r.schedule != "" }

// RunOnce executes one analysis run and logs its outcome.
func (r *Runner) RunOnce(ctx context.Context) error {
	run, err := r.pipeline.Run(ctx)
	if err != nil {
		return err
	}
	r.log.Info("analysis run complete",
		applogger.String("run_id", run.RunID),
		applogger.String("phase_source", run.PhaseSource),
		applogger.Int("analyzed", len(run.Instruments)),
		applogger.Int("skipped", len(run.Skipped)),
	)
	return nil
}

// Serve runs on the schedule until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context) error {
	sched, err := NewScheduler(r.schedule, r.RunOnce, r.log)
	if err != nil {
		return err
	}
	return sched.Start(ctx)
}
