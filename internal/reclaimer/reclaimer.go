// Package reclaimer periodically removes expired artifacts together with
// their jobs.
package reclaimer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/lead-generator/internal/artifact"
	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/jobstore"
	"github.com/cuongbtq/lead-generator/internal/metrics"
)

// DefaultInterval is the period between sweeps
const DefaultInterval = 300 * time.Second

// Options groups reclaimer dependencies
type Options struct {
	Artifacts *artifact.Cache
	Jobs      *jobstore.Store
	Clock     domain.Clock
	Logger    *slog.Logger
	Metrics   *metrics.Collector

	Interval time.Duration
	// JobRetention, when positive, also evicts terminal jobs older than it
	// that have no live artifact
	JobRetention time.Duration
}

// Reclaimer sweeps the artifact cache and job store
type Reclaimer struct {
	artifacts    *artifact.Cache
	jobs         *jobstore.Store
	clock        domain.Clock
	logger       *slog.Logger
	metrics      *metrics.Collector
	interval     time.Duration
	jobRetention time.Duration
}

// SweepResult summarizes one sweep
type SweepResult struct {
	ArtifactsRemoved int
	JobsRemoved      int
	Errors           int
}

// New constructs a Reclaimer
func New(opts Options) (*Reclaimer, error) {
	if opts.Artifacts == nil {
		return nil, errors.New("artifact cache is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	return &Reclaimer{
		artifacts:    opts.Artifacts,
		jobs:         opts.Jobs,
		clock:        opts.Clock,
		logger:       opts.Logger.With("component", "reclaimer"),
		metrics:      opts.Metrics,
		interval:     opts.Interval,
		jobRetention: max(opts.JobRetention, 0),
	}, nil
}

// Run sweeps once immediately and then every interval until ctx is done.
// Returns nil on graceful shutdown.
func (r *Reclaimer) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Starting reclaimer",
		slog.Duration("interval", r.interval),
		slog.Duration("job_retention", r.jobRetention),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reclaimer stopping", slog.Any("reason", ctx.Err()))
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep removes every expired artifact and its job. An entry whose storage
// cannot be deleted is logged and left for the next sweep.
func (r *Reclaimer) Sweep(ctx context.Context) SweepResult {
	now := r.clock.Now()
	var res SweepResult

	for _, a := range r.artifacts.Expired(now) {
		if err := r.artifacts.DeleteContent(ctx, a); err != nil {
			res.Errors++
			r.metrics.RecordReclaimError()
			r.logger.Error("Failed to delete expired artifact",
				slog.String("job_id", a.JobID),
				slog.String("location", a.Location),
				slog.String("error", err.Error()),
			)
			continue
		}

		if r.artifacts.RemoveIfExpired(a.JobID, now) {
			res.ArtifactsRemoved++
			r.metrics.RecordArtifactReclaimed()
			if r.jobs.Delete(a.JobID) {
				res.JobsRemoved++
				r.metrics.RecordJobReclaimed()
			}
		}
	}

	if r.jobRetention > 0 {
		cutoff := now.Add(-r.jobRetention)
		for _, id := range r.jobs.TerminalBefore(cutoff) {
			if r.artifacts.Has(id) {
				continue
			}
			if r.jobs.DeleteTerminalBefore(id, cutoff) {
				res.JobsRemoved++
				r.metrics.RecordJobReclaimed()
			}
		}
	}

	if res != (SweepResult{}) {
		r.logger.Info("Sweep completed",
			slog.Int("artifacts_removed", res.ArtifactsRemoved),
			slog.Int("jobs_removed", res.JobsRemoved),
			slog.Int("errors", res.Errors),
		)
	} else {
		r.logger.Debug("Sweep completed, nothing to reclaim")
	}

	return res
}
