// Package editor applies weather reports and start times to mission archives.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/miz-weather/internal/adapter/miz"
	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/observability"
)

// Edit sources, used as a metrics label.
const (
	SourceCLI   = "cli"
	SourceKafka = "kafka"
	SourceWatch = "watch"
)

// stationLen is the length of an ICAO identifier; reports of this length are
// resolved through the fetcher.
const stationLen = 4

var errNothingToDo = errors.New("nothing to do!")

// FetchError wraps a failure to retrieve the report of a station. Its text is
// that of the underlying error.
type FetchError struct {
	Station string
	Err     error
}

func (e *FetchError) Error() string { return e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

// Editor runs archive edits. It is safe for concurrent use; edits sharing a
// source or destination archive run one at a time.
type Editor struct {
	fetcher     domain.ReportFetcher
	randMu      sync.Mutex // guards rand
	rand        domain.RandomSource
	logger      *slog.Logger
	metrics     *observability.Metrics
	archiveOpts []miz.Option
	locks       *archiveLocks
}

// New creates an Editor. fetcher may be nil when station lookups are not
// needed; a nil rand seeds a source from the clock.
func New(fetcher domain.ReportFetcher, rand domain.RandomSource, logger *slog.Logger, metrics *observability.Metrics, archiveOpts ...miz.Option) *Editor {
	if rand == nil {
		rand = domain.NewClockSeededSource()
	}
	return &Editor{
		fetcher:     fetcher,
		rand:        rand,
		logger:      logger,
		metrics:     metrics,
		archiveOpts: append([]miz.Option{miz.WithLogger(logger)}, archiveOpts...),
		locks:       newArchiveLocks(),
	}
}

// Edit applies req and returns a human-readable error, or "" on success.
func (e *Editor) Edit(ctx context.Context, source string, req domain.EditRequest) string {
	_, err := e.Apply(ctx, source, req)
	return Message(req, err)
}

// Message converts an Apply error into the text returned by Edit.
func Message(req domain.EditRequest, err error) string {
	if err == nil {
		return ""
	}
	var timeErr *domain.TimeFormatError
	switch {
	case errors.As(err, &timeErr):
		return timeErr.Error()
	case errors.Is(err, miz.ErrPermissionDenied):
		return fmt.Sprintf("permission error: cannot edit %q; maybe it is in use ?", outputPath(req))
	}
	return err.Error()
}

// Apply derives the weather and start time of req, writes them to the
// archive and packs it. The written archive path is returned. Nothing is
// written unless every change was accepted.
func (e *Editor) Apply(ctx context.Context, source string, req domain.EditRequest) (string, error) {
	start := time.Now()
	out, err := e.apply(ctx, req)
	e.metrics.EditDuration.Observe(time.Since(start).Seconds())

	outcome := domain.OutcomeSuccess
	if err != nil {
		outcome = domain.OutcomeFailure
		e.logger.Warn("edit failed", "archive", req.ArchivePath, "source", source, "error", err)
	} else {
		e.logger.Info("archive edited", "archive", req.ArchivePath, "output", out, "source", source)
	}
	e.metrics.Edits.WithLabelValues(source, outcome).Inc()
	return out, err
}

func (e *Editor) apply(ctx context.Context, req domain.EditRequest) (string, error) {
	var wx *domain.Weather
	if req.Report != "" {
		derived, err := e.deriveWeather(ctx, req)
		if err != nil {
			return "", err
		}
		wx = &derived
	}

	var mt *domain.MissionTime
	if req.Time != "" {
		parsed, err := domain.ParseMissionTime(req.Time)
		if err != nil {
			return "", err
		}
		mt = &parsed
	}

	if wx == nil && mt == nil {
		return "", errNothingToDo
	}

	dest := outputPath(req)
	unlock := e.locks.lock(req.ArchivePath, dest)
	defer unlock()
	e.logger.Debug("editing archive", "archive", req.ArchivePath, "output", dest)

	var written string
	err := miz.With(req.ArchivePath, func(a *miz.Archive) error {
		mission, err := a.Mission()
		if err != nil {
			return err
		}
		if wx != nil {
			if err := wx.ApplyTo(mission.Weather()); err != nil {
				return fmt.Errorf("error while applying weather to mission: %w", err)
			}
		}
		if mt != nil {
			if err := mt.ApplyTo(mission.TimeStore()); err != nil {
				return fmt.Errorf("error while setting time on mission: %w", err)
			}
		}
		written, err = a.Pack(dest)
		return err
	}, e.archiveOpts...)
	if err != nil {
		return "", err
	}
	return written, nil
}

// deriveWeather parses the report, or fetches it first when it is a station
// identifier, and derives validated mission weather from it.
func (e *Editor) deriveWeather(ctx context.Context, req domain.EditRequest) (domain.Weather, error) {
	report := req.Report
	if len(report) == stationLen {
		if e.fetcher == nil {
			return domain.Weather{}, &FetchError{Station: report, Err: fmt.Errorf("cannot retrieve a report for %s: no report source", report)}
		}
		e.logger.Debug("retrieving report for station", "station", report)
		fetched, err := e.fetcher.FetchReport(ctx, report)
		if err != nil {
			return domain.Weather{}, &FetchError{Station: report, Err: err}
		}
		report = fetched
	}

	obs, err := domain.ParseReport(report)
	if err != nil {
		return domain.Weather{}, err
	}

	opts := domain.DefaultIngestOptions(e.rand)
	opts.Logger = e.logger
	if req.MinWind != nil {
		opts.MinWind = *req.MinWind
	}
	if req.MaxWind != nil {
		opts.MaxWind = *req.MaxWind
	}
	e.randMu.Lock()
	wx, err := domain.DeriveWeather(obs, opts)
	e.randMu.Unlock()
	if err != nil {
		return domain.Weather{}, err
	}
	if err := wx.Validate(); err != nil {
		return domain.Weather{}, err
	}
	wx.LogSummary(e.logger)
	return wx, nil
}

// Preview derives the weather req.Report would produce without touching any
// archive. The random draws differ between calls.
func (e *Editor) Preview(ctx context.Context, req domain.EditRequest) (domain.Weather, error) {
	if req.Report == "" {
		return domain.Weather{}, errors.New("a report or station is required")
	}
	return e.deriveWeather(ctx, req)
}

func outputPath(req domain.EditRequest) string {
	if req.OutputPath != "" {
		return req.OutputPath
	}
	return miz.DefaultOutputPath(req.ArchivePath)
}
