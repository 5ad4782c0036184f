package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/events"
)

func (w *Worker) run(jobID string, req domain.Requirements) {
	defer w.wg.Done()

	ctx := w.ctx
	if w.sem != nil {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			w.finish(ctx, jobID, req, domain.Failed{
				Reason: fmt.Sprintf("job not started: %v", err),
				At:     w.clock.Now(),
			})
			return
		}
		defer w.sem.Release(1)
	}

	started := w.clock.Now()
	w.metrics.RecordJobStarted()

	w.logger.Info("Processing job",
		slog.String("job_id", jobID),
		slog.String("industry", req.Industry),
		slog.String("location", req.Location),
		slog.Int("max_results", req.MaxResults),
	)

	outcome := w.execute(ctx, jobID, req)

	if w.finish(ctx, jobID, req, outcome) {
		elapsed := w.clock.Now().Sub(started)
		switch outcome.(type) {
		case domain.Completed:
			w.metrics.RecordJobCompleted(elapsed)
		default:
			w.metrics.RecordJobFailed(elapsed)
		}
	}
}

// execute runs the aggregation and converts its result, or a panic, into
// the terminal outcome of the job
func (w *Worker) execute(ctx context.Context, jobID string, req domain.Requirements) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Job panicked",
				slog.String("job_id", jobID),
				slog.Any("panic", r),
			)
			outcome = domain.Failed{Reason: fmt.Sprintf("internal error: %v", r), At: w.clock.Now()}
		}
	}()

	contacts, err := w.aggregator.Aggregate(ctx, req, func(progress int) {
		if err := w.store.UpdateProgress(jobID, progress); err != nil {
			w.logger.Warn("Failed to update job progress",
				slog.String("job_id", jobID),
				slog.Int("progress", progress),
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		w.logger.Error("Job execution failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return domain.Failed{Reason: err.Error(), At: w.clock.Now()}
	}

	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return domain.Completed{Results: contacts, At: w.clock.Now()}
}

// finish records the outcome and publishes the lifecycle event.
// Returns false if the store rejected the transition.
func (w *Worker) finish(ctx context.Context, jobID string, req domain.Requirements, outcome domain.Outcome) bool {
	if err := w.store.Finish(jobID, req, outcome); err != nil {
		level := slog.LevelError
		if errors.Is(err, domain.ErrJobNotFound) {
			level = slog.LevelWarn
		}
		w.logger.Log(ctx, level, "Failed to record job outcome",
			slog.String("job_id", jobID),
			slog.String("status", string(outcome.Status())),
			slog.String("error", err.Error()),
		)
		return false
	}

	switch o := outcome.(type) {
	case domain.Completed:
		w.logger.Info("Job completed successfully",
			slog.String("job_id", jobID),
			slog.Int("results", len(o.Results)),
		)
	case domain.Failed:
		w.logger.Info("Job marked as failed",
			slog.String("job_id", jobID),
			slog.String("reason", o.Reason),
		)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.publishTimeout)
	defer cancel()

	if err := w.publisher.Publish(pubCtx, events.FromOutcome(jobID, outcome)); err != nil {
		w.logger.Warn("Failed to publish job event",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
	return true
}
