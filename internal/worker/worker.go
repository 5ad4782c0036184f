// Package worker runs lead generation jobs in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/lead-generator/internal/aggregator"
	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/events"
	"github.com/cuongbtq/lead-generator/internal/jobstore"
	"github.com/cuongbtq/lead-generator/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// DefaultPublishTimeout bounds a single lifecycle event publish
const DefaultPublishTimeout = 5 * time.Second

// ErrWorkerStopped is returned by Submit after Stop was called
var ErrWorkerStopped = errors.New("worker stopped")

// Aggregator produces the contacts of one job
type Aggregator interface {
	Aggregate(ctx context.Context, req domain.Requirements, progress aggregator.ProgressFunc) ([]domain.Contact, error)
}

// Config holds worker configuration
type Config struct {
	Logger     *slog.Logger
	Store      *jobstore.Store
	Aggregator Aggregator
	Publisher  events.Publisher
	Metrics    *metrics.Collector
	Clock      domain.Clock

	// MaxConcurrentJobs caps running jobs. Jobs over the cap wait in
	// processing at progress 0. Zero means unbounded.
	MaxConcurrentJobs int
	PublishTimeout    time.Duration
}

// Worker executes submitted jobs, one goroutine per job
type Worker struct {
	logger         *slog.Logger
	store          *jobstore.Store
	aggregator     Aggregator
	publisher      events.Publisher
	metrics        *metrics.Collector
	clock          domain.Clock
	sem            *semaphore.Weighted
	maxConcurrent  int
	publishTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) (*Worker, error) {
	if cfg.Store == nil {
		return nil, errors.New("job store is required")
	}
	if cfg.Aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if cfg.MaxConcurrentJobs < 0 {
		return nil, fmt.Errorf("max concurrent jobs must not be negative, got %d", cfg.MaxConcurrentJobs)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = DefaultPublishTimeout
	}

	w := &Worker{
		logger:         logger.With("component", "worker"),
		store:          cfg.Store,
		aggregator:     cfg.Aggregator,
		publisher:      publisher,
		metrics:        cfg.Metrics,
		clock:          clock,
		maxConcurrent:  cfg.MaxConcurrentJobs,
		publishTimeout: publishTimeout,
	}
	if cfg.MaxConcurrentJobs > 0 {
		w.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs))
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())

	return w, nil
}

// Submit starts the job in the background. The job must already exist
// in the store in the processing state.
func (w *Worker) Submit(jobID string, req domain.Requirements) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return ErrWorkerStopped
	}

	w.wg.Add(1)
	go w.run(jobID, req.Clone())

	w.logger.Debug("Job submitted", slog.String("job_id", jobID))
	return nil
}

// Stop rejects new jobs and waits for running ones. If ctx expires first the
// remaining jobs are canceled and ctx's error is returned.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.logger.Info("Stopping worker...")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		w.logger.Info("Worker stopped")
		return nil
	case <-ctx.Done():
		w.cancel()
		<-done
		w.logger.Warn("Worker stopped before all jobs finished", slog.Any("error", ctx.Err()))
		return ctx.Err()
	}
}
