// Package jobstore is the authoritative in-memory table of job state.
//
// Every mutation of a job goes through the Store so that multi-field updates
// are applied under one lock and readers only ever see whole snapshots.
package jobstore

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/lead-generator/internal/domain"
)

// Store maps job ids to jobs
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*domain.Job
	clock  domain.Clock
	logger *slog.Logger
}

// New creates an empty Store
func New(clock domain.Clock, logger *slog.Logger) *Store {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		jobs:   make(map[string]*domain.Job),
		clock:  clock,
		logger: logger.With("component", "job_store"),
	}
}

// Create inserts a new processing job at progress 0.
// Returns ErrDuplicateJob if the id is already taken.
func (s *Store) Create(id string, req domain.Requirements) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return nil, domain.ErrDuplicateJob
	}

	job := &domain.Job{
		ID:           id,
		Status:       domain.JobStatusProcessing,
		Progress:     domain.ProgressStarted,
		Requirements: req.Clone(),
		Results:      []domain.Contact{},
		CreatedAt:    s.clock.Now(),
	}
	s.jobs[id] = job

	return job.Clone(), nil
}

// Get returns a snapshot of the job
func (s *Store) Get(id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

// UpdateProgress raises the progress of a processing job.
// Values at or below the current progress are ignored.
func (s *Store) UpdateProgress(id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.IsTerminal() {
		return domain.ErrJobTerminal
	}

	progress = min(progress, domain.ProgressDone)
	if progress > job.Progress {
		job.Progress = progress
	}
	return nil
}

// Finish applies the single terminal transition of a job.
//
// A Completed outcome sets status, results, progress and completion time
// together. A Failed outcome for a job that is no longer in the store
// synthesizes a failed entry from req so the error is not lost.
func (s *Store) Finish(id string, req domain.Requirements, outcome domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if ok && job.IsTerminal() {
		return domain.ErrJobTerminal
	}

	switch o := outcome.(type) {
	case domain.Completed:
		if !ok {
			return domain.ErrJobNotFound
		}
		job.Status = domain.JobStatusCompleted
		job.Results = append([]domain.Contact{}, o.Results...)
		job.Progress = domain.ProgressDone
		job.CompletedAt = o.At

	case domain.Failed:
		if !ok {
			s.logger.Warn("Job missing when recording failure, synthesizing entry",
				slog.String("job_id", id),
			)
			job = &domain.Job{
				ID:           id,
				Progress:     domain.ProgressStarted,
				Requirements: req.Clone(),
				Results:      []domain.Contact{},
				CreatedAt:    s.clock.Now(),
			}
			s.jobs[id] = job
		}
		job.Status = domain.JobStatusFailed
		job.Error = o.Reason
		job.CompletedAt = o.At

	default:
		return fmt.Errorf("unsupported outcome %T", outcome)
	}

	return nil
}

// Delete removes a job. Reports whether it was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// TerminalBefore lists terminal jobs that finished before cutoff
func (s *Store) TerminalBefore(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, job := range s.jobs {
		if job.IsTerminal() && job.CompletedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// DeleteTerminalBefore removes the job only if it is still terminal and
// finished before cutoff.
func (s *Store) DeleteTerminalBefore(id string, cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || !job.IsTerminal() || !job.CompletedAt.Before(cutoff) {
		return false
	}
	delete(s.jobs, id)
	return true
}

// Cursor marks the last job of a page in (created_at, id) order
type Cursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListFilter selects a page of jobs
type ListFilter struct {
	Status domain.JobStatus // empty matches every status
	Limit  int
	Cursor *Cursor
}

// List returns snapshots ordered newest first, ties broken by id descending.
// Only jobs strictly after the cursor in that order are returned.
func (s *Store) List(filter ListFilter) []*domain.Job {
	s.mu.RLock()
	matched := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if c := filter.Cursor; c != nil && !before(job, c) {
			continue
		}
		matched = append(matched, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched
}

// before reports whether job sorts after c in newest-first order
func before(job *domain.Job, c *Cursor) bool {
	if job.CreatedAt.Equal(c.CreatedAt) {
		return job.ID < c.JobID
	}
	return job.CreatedAt.Before(c.CreatedAt)
}

// Counts returns the number of jobs per status
func (s *Store) Counts() map[domain.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[domain.JobStatus]int{
		domain.JobStatusProcessing: 0,
		domain.JobStatusCompleted:  0,
		domain.JobStatusFailed:     0,
	}
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts
}

// Len returns the number of jobs held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
