package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/lead-generator/internal/artifact"
	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/jobstore"
	"github.com/cuongbtq/lead-generator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu        sync.Mutex
	submitted []string
	err       error
}

func (r *recordingRunner) Submit(jobID string, _ domain.Requirements) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, jobID)
	return r.err
}

type memStorage struct{}

func (memStorage) Save(_ context.Context, name string, _ []byte) (string, error) { return "mem/" + name, nil }
func (memStorage) Delete(context.Context, string) error                         { return nil }

var t0 = time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *LeadService
	store     *jobstore.Store
	runner    *recordingRunner
	extractor *testutil.MockRequirementExtractor
	clock     *domain.FixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := domain.NewFixedClock(t0)
	store := jobstore.New(clock, nil)
	cache, err := artifact.NewCache(artifact.Options{Storage: memStorage{}, Clock: clock})
	require.NoError(t, err)

	f := &fixture{
		store:     store,
		runner:    &recordingRunner{},
		extractor: &testutil.MockRequirementExtractor{},
		clock:     clock,
	}

	n := 0
	f.svc, err = New(Options{
		Store:     store,
		Runner:    f.runner,
		Artifacts: cache,
		Extractor: f.extractor,
		Clock:     clock,
		NewID: func() string {
			n++
			return fmt.Sprintf("job-%d", n)
		},
	})
	require.NoError(t, err)
	return f
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestCreateJob(t *testing.T) {
	f := newFixture(t)

	job, err := f.svc.CreateJob(context.Background(), domain.Requirements{Industry: " dentists ", Location: "Toronto"})
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, "dentists", job.Requirements.Industry)
	assert.Equal(t, domain.DefaultMaxResults, job.Requirements.MaxResults)
	assert.Equal(t, []string{"job-1"}, f.runner.submitted)
	assert.Equal(t, t0.Add(3*time.Minute), EstimatedCompletion(job.CreatedAt))
}

func TestCreateJob_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   domain.Requirements
		field string
	}{
		{name: "missing industry", req: domain.Requirements{Location: "Toronto"}, field: "industry"},
		{name: "blank location", req: domain.Requirements{Industry: "x", Location: "  "}, field: "location"},
		{name: "negative max", req: domain.Requirements{Industry: "x", Location: "y", MaxResults: -1}, field: "max_results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateJob(context.Background(), tt.req)

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, 0, f.store.Len(), "no job is created")
			assert.Empty(t, f.runner.submitted)
		})
	}
}

func TestCreateJob_SubmitFailureRecordsFailedJob(t *testing.T) {
	f := newFixture(t)
	f.runner.err = errors.New("worker stopped")

	_, err := f.svc.CreateJob(context.Background(), domain.Requirements{Industry: "x", Location: "y"})
	require.Error(t, err)

	job, err := f.store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "worker stopped")
}

func TestGetJobStatus_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetJobStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestMaterializeArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := domain.Requirements{Industry: "x", Location: "y"}

	job, err := f.svc.CreateJob(ctx, req)
	require.NoError(t, err)

	t.Run("not ready", func(t *testing.T) {
		require.NoError(t, f.store.UpdateProgress(job.ID, 55))
		_, err := f.svc.MaterializeArtifact(ctx, job.ID)

		var nr *domain.NotReadyError
		require.ErrorAs(t, err, &nr)
		assert.Equal(t, 55, nr.Progress)
		assert.ErrorIs(t, err, domain.ErrJobNotReady)
	})

	t.Run("completed", func(t *testing.T) {
		results := []domain.Contact{{Name: "a", Phone: "1"}, {Name: "b", Phone: "2"}}
		require.NoError(t, f.store.Finish(job.ID, req, domain.Completed{Results: results, At: t0}))

		a, err := f.svc.MaterializeArtifact(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, a.TotalLeads)
		assert.Equal(t, "leads_job-1.csv", a.Filename)
		assert.Len(t, strings.Split(strings.TrimSpace(string(a.Content)), "\n"), 3)

		got, err := f.svc.GetArtifact(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Content, got.Content)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := f.svc.MaterializeArtifact(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestMaterializeArtifact_FailedJob(t *testing.T) {
	f := newFixture(t)
	req := domain.Requirements{Industry: "x", Location: "y"}
	job, err := f.svc.CreateJob(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, f.store.Finish(job.ID, req, domain.Failed{Reason: "places search: 502", At: t0}))

	_, err = f.svc.MaterializeArtifact(context.Background(), job.ID)

	var jf *domain.JobFailedError
	require.ErrorAs(t, err, &jf)
	assert.Equal(t, "places search: 502", jf.Reason)
	assert.Equal(t, "lead generation failed: places search: 502", err.Error())

	_, err = f.svc.GetArtifact(context.Background(), job.ID)
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestExtractRequirements(t *testing.T) {
	f := newFixture(t)
	extracted := &domain.ExtractedRequirements{
		Requirements: domain.Requirements{Industry: "dentists", Location: "Toronto", MaxResults: 50},
	}
	f.extractor.On("ExtractRequirements", mock.Anything, "dentists in toronto").Return(extracted, nil)

	res, err := f.svc.ExtractRequirements(context.Background(), "dentists in toronto")
	require.NoError(t, err)
	assert.True(t, res.Ready())
	assert.Equal(t, "dentists", res.Requirements.Industry)
	assert.Equal(t, 0, f.store.Len())
}

func TestExtractRequirements_NeedsClarification(t *testing.T) {
	f := newFixture(t)
	f.extractor.On("ExtractRequirements", mock.Anything, mock.Anything).Return(&domain.ExtractedRequirements{
		ClarifyingQuestions: []string{"Which city?"},
	}, nil)

	res, err := f.svc.ExtractRequirements(context.Background(), "leads please")
	require.NoError(t, err)
	assert.False(t, res.Ready())
}

func TestExtractRequirements_Errors(t *testing.T) {
	f := newFixture(t)
	f.extractor.On("ExtractRequirements", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	_, err := f.svc.ExtractRequirements(context.Background(), "  ")
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = f.svc.ExtractRequirements(context.Background(), "dentists")
	var cErr *domain.CollaboratorError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "extract requirements", cErr.Op)
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateJob(ctx, domain.Requirements{Industry: "x", Location: "y"})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	page, err := f.svc.ListJobs(ctx, ListJobsParams{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Jobs, 2)
	assert.Equal(t, "job-3", page.Jobs[0].ID)
	require.NotNil(t, page.Next)

	page, err = f.svc.ListJobs(ctx, ListJobsParams{PageSize: 2, Cursor: page.Next})
	require.NoError(t, err)
	require.Len(t, page.Jobs, 1)
	assert.Equal(t, "job-1", page.Jobs[0].ID)
	assert.Nil(t, page.Next)

	_, err = f.svc.ListJobs(ctx, ListJobsParams{Status: "bogus"})
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
