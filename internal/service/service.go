// Package service implements the outward lead generation operations on top
// of the job store, worker and artifact cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/lead-generator/internal/artifact"
	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/jobstore"
	"github.com/cuongbtq/lead-generator/internal/metrics"
	"github.com/google/uuid"
)

const (
	// EstimatedDuration is the completion estimate reported for new jobs
	EstimatedDuration = 3 * time.Minute

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// RequirementExtractor structures a freeform lead generation request
type RequirementExtractor interface {
	ExtractRequirements(ctx context.Context, text string) (*domain.ExtractedRequirements, error)
}

// Runner starts a job in the background
type Runner interface {
	Submit(jobID string, req domain.Requirements) error
}

// Options groups LeadService dependencies
type Options struct {
	Store     *jobstore.Store
	Runner    Runner
	Artifacts *artifact.Cache
	Extractor RequirementExtractor // optional, ExtractRequirements fails without it
	Metrics   *metrics.Collector
	Clock     domain.Clock
	Logger    *slog.Logger

	DefaultMaxResults int
	NewID             func() string
}

// LeadService is the entry point for every client-facing operation
type LeadService struct {
	store      *jobstore.Store
	runner     Runner
	artifacts  *artifact.Cache
	extractor  RequirementExtractor
	metrics    *metrics.Collector
	clock      domain.Clock
	logger     *slog.Logger
	maxResults int
	newID      func() string
}

// New constructs a LeadService
func New(opts Options) (*LeadService, error) {
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("job runner is required")
	}
	if opts.Artifacts == nil {
		return nil, errors.New("artifact cache is required")
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultMaxResults <= 0 {
		opts.DefaultMaxResults = domain.DefaultMaxResults
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &LeadService{
		store:      opts.Store,
		runner:     opts.Runner,
		artifacts:  opts.Artifacts,
		extractor:  opts.Extractor,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		logger:     opts.Logger.With("component", "lead_service"),
		maxResults: opts.DefaultMaxResults,
		newID:      opts.NewID,
	}, nil
}

// ExtractionResult is the outcome of ExtractRequirements
type ExtractionResult struct {
	Requirements domain.ExtractedRequirements
}

// Ready reports whether the requirements can be submitted as a job
func (r *ExtractionResult) Ready() bool {
	return !r.Requirements.NeedsClarification()
}

// ExtractRequirements turns freeform text into structured requirements.
// No job is created.
func (s *LeadService) ExtractRequirements(ctx context.Context, text string) (*ExtractionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("request", "is required")
	}
	if s.extractor == nil {
		return nil, domain.NewCollaboratorError("extract requirements", errors.New("requirement extractor not configured"))
	}

	extracted, err := s.extractor.ExtractRequirements(ctx, text)
	if err != nil {
		s.logger.Error("Requirement extraction failed", slog.String("error", err.Error()))
		return nil, domain.NewCollaboratorError("extract requirements", err)
	}

	return &ExtractionResult{Requirements: *extracted}, nil
}

// CreateJob validates req, records a processing job and starts it.
// A zero MaxResults takes the service default.
func (s *LeadService) CreateJob(ctx context.Context, req domain.Requirements) (*domain.Job, error) {
	req = req.Clone()
	req.Industry = strings.TrimSpace(req.Industry)
	req.Location = strings.TrimSpace(req.Location)
	if req.MaxResults == 0 {
		req.MaxResults = s.maxResults
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := s.newID()
	job, err := s.store.Create(id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	s.metrics.RecordJobCreated()

	if err := s.runner.Submit(id, req); err != nil {
		reason := fmt.Sprintf("failed to start job: %v", err)
		_ = s.store.Finish(id, req, domain.Failed{Reason: reason, At: s.clock.Now()})
		return nil, errors.New(reason)
	}

	s.logger.InfoContext(ctx, "Job created",
		slog.String("job_id", id),
		slog.String("industry", req.Industry),
		slog.String("location", req.Location),
		slog.Int("max_results", req.MaxResults),
	)

	return job, nil
}

// EstimatedCompletion is when a job created at createdAt should be done
func EstimatedCompletion(createdAt time.Time) time.Time {
	return createdAt.Add(EstimatedDuration)
}

// GetJobStatus returns a snapshot of the job
func (s *LeadService) GetJobStatus(_ context.Context, jobID string) (*domain.Job, error) {
	return s.store.Get(jobID)
}

// ListJobsParams selects a page of jobs
type ListJobsParams struct {
	Status   domain.JobStatus
	PageSize int
	Cursor   *jobstore.Cursor
}

// ListJobsResult is one page of jobs
type ListJobsResult struct {
	Jobs []*domain.Job
	Next *jobstore.Cursor // nil on the last page
}

// ListJobs returns jobs newest first
func (s *LeadService) ListJobs(_ context.Context, params ListJobsParams) (*ListJobsResult, error) {
	switch params.Status {
	case "", domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
	default:
		return nil, domain.NewValidationError("status", "must be one of processing, completed, failed")
	}

	if params.PageSize <= 0 {
		params.PageSize = DefaultPageSize
	}
	params.PageSize = min(params.PageSize, MaxPageSize)

	jobs := s.store.List(jobstore.ListFilter{
		Status: params.Status,
		Limit:  params.PageSize + 1,
		Cursor: params.Cursor,
	})

	res := &ListJobsResult{Jobs: jobs}
	if len(jobs) > params.PageSize {
		res.Jobs = jobs[:params.PageSize]
		last := res.Jobs[len(res.Jobs)-1]
		res.Next = &jobstore.Cursor{CreatedAt: last.CreatedAt, JobID: last.ID}
	}
	return res, nil
}

// MaterializeArtifact builds the downloadable export of a completed job.
// Fails with ErrJobNotFound, a *NotReadyError while processing, or a
// *JobFailedError carrying the recorded cause.
func (s *LeadService) MaterializeArtifact(ctx context.Context, jobID string) (*domain.Artifact, error) {
	job, err := s.store.Get(jobID)
	if err != nil {
		return nil, err
	}

	switch st := job.State().(type) {
	case domain.Processing:
		return nil, &domain.NotReadyError{Progress: st.Progress}
	case domain.Failed:
		return nil, &domain.JobFailedError{Reason: st.Reason}
	case domain.Completed:
		a, err := s.artifacts.Materialize(ctx, jobID, st.Results)
		if err != nil {
			s.logger.Error("Failed to materialize artifact",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("failed to materialize artifact: %w", err)
		}
		s.metrics.RecordArtifactMaterialized()
		return a, nil
	default:
		return nil, fmt.Errorf("unknown job state %T", st)
	}
}

// GetArtifact returns the live artifact of a job
func (s *LeadService) GetArtifact(_ context.Context, jobID string) (*domain.Artifact, error) {
	return s.artifacts.Get(jobID)
}
