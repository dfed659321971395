// Package scheduler periodically re-applies the live report of a station to a
// mission archive.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	"github.com/robfig/cron/v3"
)

// runTimeout bounds one scheduled edit, report retrieval included.
const runTimeout = 60 * time.Second

// Applier runs one archive edit and returns the written path.
type Applier interface {
	Apply(ctx context.Context, source string, req domain.EditRequest) (string, error)
}

// Job describes one watched archive.
type Job struct {
	Station     string
	ArchivePath string
	OutputPath  string
	MinWind     *int
	MaxWind     *int
}

func (j Job) request() domain.EditRequest {
	return domain.EditRequest{
		ArchivePath: j.ArchivePath,
		OutputPath:  j.OutputPath,
		Report:      j.Station,
		MinWind:     j.MinWind,
		MaxWind:     j.MaxWind,
	}
}

func (j Job) validate() error {
	if len(j.Station) != 4 {
		return fmt.Errorf("invalid station %q: expected a 4-character ICAO identifier", j.Station)
	}
	if j.ArchivePath == "" {
		return errors.New("archive path is required")
	}
	return nil
}

// Scheduler runs Jobs on cron schedules. A run still in progress when its
// next activation comes up is skipped.
type Scheduler struct {
	cron    *cron.Cron
	applier Applier
	logger  *slog.Logger
	jobs    []Job
}

// New creates a Scheduler using standard five-field cron expressions.
func New(applier Applier, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		applier: applier,
		logger:  logger,
	}
}

// Add registers job under spec.
func (s *Scheduler) Add(spec string, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.jobs = append(s.jobs, job)
	s.logger.Info("watching archive", "archive", job.ArchivePath, "station", job.Station, "schedule", spec)
	return nil
}

// RunNow applies the current report of the job's station once.
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	out, err := s.applier.Apply(ctx, editor.SourceWatch, job.request())
	if err != nil {
		s.logger.Error("scheduled edit failed", "archive", job.ArchivePath, "station", job.Station,
			"error", err, "duration", time.Since(start))
		return err
	}
	s.logger.Info("scheduled edit completed", "archive", job.ArchivePath, "output", out,
		"duration", time.Since(start))
	return nil
}

func (s *Scheduler) run(job Job) {
	_ = s.RunNow(context.Background(), job)
}

// Run applies every job once, then follows the schedules until ctx is done.
// It waits for runs in progress before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return errors.New("no jobs scheduled")
	}
	for _, job := range s.jobs {
		_ = s.RunNow(ctx, job)
	}

	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Debug("next scheduled edit", "entry", e.ID, "next_run", e.Next)
	}

	<-ctx.Done()
	s.logger.Info("scheduler stopping", "reason", ctx.Err())
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
