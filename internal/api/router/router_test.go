package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuongbtq/lead-generator/internal/api/dto"
	"github.com/cuongbtq/lead-generator/internal/api/handler"
	"github.com/cuongbtq/lead-generator/internal/artifact"
	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/jobstore"
	"github.com/cuongbtq/lead-generator/internal/metrics"
	"github.com/cuongbtq/lead-generator/internal/service"
	"github.com/cuongbtq/lead-generator/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noopRunner struct{}

func (noopRunner) Submit(string, domain.Requirements) error { return nil }

type memStorage struct{}

func (memStorage) Save(_ context.Context, name string, _ []byte) (string, error) { return "mem/" + name, nil }
func (memStorage) Delete(context.Context, string) error                         { return nil }

var t0 = time.Date(2026, 10, 14, 16, 0, 0, 0, time.UTC)

type testServer struct {
	engine    *gin.Engine
	store     *jobstore.Store
	extractor *testutil.MockRequirementExtractor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := domain.NewFixedClock(t0)
	store := jobstore.New(clock, logger)
	cache, err := artifact.NewCache(artifact.Options{Storage: memStorage{}, Clock: clock, Logger: logger})
	require.NoError(t, err)

	extractor := &testutil.MockRequirementExtractor{}
	n := 0
	svc, err := service.New(service.Options{
		Store:     store,
		Runner:    noopRunner{},
		Artifacts: cache,
		Extractor: extractor,
		Clock:     clock,
		Logger:    logger,
		NewID: func() string {
			n++
			return fmt.Sprintf("job-%d", n)
		},
	})
	require.NoError(t, err)

	engine := SetupRouter(&handler.Dependencies{Logger: logger, Service: svc}, metrics.NewCollector(prometheus.NewRegistry()))
	return &testServer{engine: engine, store: store, extractor: extractor}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestHealth_DependencyChecks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	brokerDown := errors.New("not connected to RabbitMQ")

	tests := []struct {
		name       string
		checks     map[string]handler.HealthCheck
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name: "all dependencies ready",
			checks: map[string]handler.HealthCheck{
				"database": func(context.Context) error { return nil },
				"rabbitmq": func(context.Context) error { return nil },
			},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantChecks: map[string]string{"database": "ok", "rabbitmq": "ok"},
		},
		{
			name: "broker disconnected",
			checks: map[string]handler.HealthCheck{
				"database": func(context.Context) error { return nil },
				"rabbitmq": func(context.Context) error { return brokerDown },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantChecks: map[string]string{"database": "ok", "rabbitmq": brokerDown.Error()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := SetupRouter(&handler.Dependencies{Logger: logger, HealthChecks: tt.checks}, nil)
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			body := decode[struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}](t, rec)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}

func TestRequestID_Propagated(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{"industry": "x", "location": "y"})

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leadgen_jobs_created_total 1")
}

func TestCreateJob(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{
		"industry": "dentists", "location": "Toronto", "required_fields": []string{"phone"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	resp := decode[dto.CreateJobResponse](t, rec)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, 0, resp.Progress)
	assert.Equal(t, 0, resp.ResultsCount)
	assert.Equal(t, t0.Add(3*time.Minute).Format(time.RFC3339), resp.EstimatedCompletion)
}

func TestCreateJob_BadRequest(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing location", body: map[string]any{"industry": "x"}},
		{name: "blank industry", body: map[string]any{"industry": "  ", "location": "y"}},
		{name: "negative max", body: map[string]any{"industry": "x", "location": "y", "max_results": -3}},
		{name: "wrong type", body: map[string]any{"industry": 1, "location": "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 0, s.store.Len())
}

func TestGetJob(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{"industry": "x", "location": "y", "max_results": 5})

	rec := s.do(t, http.MethodGet, "/api/v1/jobs/job-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[dto.JobDTO](t, rec)
	assert.Equal(t, "processing", job.Status)
	assert.Equal(t, 5, job.Requirements.MaxResults)
	assert.Empty(t, job.Results)

	req := domain.Requirements{Industry: "x", Location: "y", MaxResults: 5}
	require.NoError(t, s.store.Finish("job-1", req, domain.Completed{
		Results: []domain.Contact{{Name: "Joe", Phone: "416", Source: domain.SourcePlaces}},
		At:      t0,
	}))

	job = decode[dto.JobDTO](t, s.do(t, http.MethodGet, "/api/v1/jobs/job-1", nil))
	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 1, job.ResultsCount)
	require.Len(t, job.Results, 1)
	assert.Equal(t, "places", job.Results[0].Source)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{"industry": "x", "location": "y"})
	}

	first := decode[dto.ListJobsResponse](t, s.do(t, http.MethodGet, "/api/v1/jobs?page_size=2", nil))
	require.Len(t, first.Jobs, 2)
	require.NotEmpty(t, first.NextCursor)

	second := decode[dto.ListJobsResponse](t, s.do(t, http.MethodGet, "/api/v1/jobs?page_size=2&cursor="+first.NextCursor, nil))
	require.Len(t, second.Jobs, 1)
	assert.Empty(t, second.NextCursor)

	seen := map[string]bool{}
	for _, j := range append(first.Jobs, second.Jobs...) {
		seen[j.JobID] = true
	}
	assert.Len(t, seen, 3)

	rec := s.do(t, http.MethodGet, "/api/v1/jobs?cursor=invalid!", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs?status=unknown", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifactLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{"industry": "x", "location": "y"})
	req := domain.Requirements{Industry: "x", Location: "y", MaxResults: domain.DefaultMaxResults}

	require.NoError(t, s.store.UpdateProgress("job-1", 43))
	rec := s.do(t, http.MethodPost, "/api/v1/jobs/job-1/artifact", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode[dto.ErrorResponse](t, rec)
	require.NotNil(t, errResp.Progress)
	assert.Equal(t, 43, *errResp.Progress)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/job-1/artifact", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.store.Finish("job-1", req, domain.Completed{
		Results: []domain.Contact{{Name: "Joe's Pizza", Phone: "(416) 555-0134", Source: domain.SourceOrganicSearch}},
		At:      t0,
	}))

	rec = s.do(t, http.MethodPost, "/api/v1/jobs/job-1/artifact", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	art := decode[dto.ArtifactResponse](t, rec)
	assert.Equal(t, 1, art.TotalLeads)
	assert.Equal(t, "leads_job-1.csv", art.Filename)
	assert.Equal(t, domain.ArtifactFields, art.Fields)
	assert.Equal(t, "name,phone,email,website,address,rating,source\nJoe's Pizza,(416) 555-0134,,,,,organic_search\n", art.CSVContent)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/job-1/artifact", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "leads_job-1.csv")
	assert.Equal(t, art.CSVContent, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/jobs/unknown/artifact", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMaterializeArtifact_FailedJob(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/jobs", map[string]any{"industry": "x", "location": "y"})
	require.NoError(t, s.store.Finish("job-1", domain.Requirements{}, domain.Failed{Reason: "organic search: timeout", At: t0}))

	rec := s.do(t, http.MethodPost, "/api/v1/jobs/job-1/artifact", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "lead generation failed: organic search: timeout", decode[dto.ErrorResponse](t, rec).Error)
}

func TestExtractRequirements(t *testing.T) {
	s := newTestServer(t)
	s.extractor.On("ExtractRequirements", mock.Anything, "dentists in toronto").Return(&domain.ExtractedRequirements{
		Requirements: domain.Requirements{Industry: "dentists", Location: "Toronto", MaxResults: 50},
	}, nil)
	s.extractor.On("ExtractRequirements", mock.Anything, "some leads").Return(&domain.ExtractedRequirements{
		ClarifyingQuestions: []string{"Which industry?"},
	}, nil)
	s.extractor.On("ExtractRequirements", mock.Anything, "boom").Return(nil, errors.New("quota"))

	rec := s.do(t, http.MethodPost, "/api/v1/requirements/extract", map[string]string{"request": "dentists in toronto"})
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[dto.ExtractRequirementsResponse](t, rec)
	assert.Equal(t, "requirements_ready", ready.Status)
	require.NotNil(t, ready.Requirements)
	assert.Equal(t, "dentists", ready.Requirements.Industry)
	assert.Equal(t, "Ready to generate leads for dentists in Toronto.", ready.Message)

	unclear := decode[dto.ExtractRequirementsResponse](t, s.do(t, http.MethodPost, "/api/v1/requirements/extract", map[string]string{"request": "some leads"}))
	assert.Equal(t, "needs_clarification", unclear.Status)
	assert.Equal(t, []string{"Which industry?"}, unclear.Questions)

	rec = s.do(t, http.MethodPost, "/api/v1/requirements/extract", map[string]string{"request": "boom"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/requirements/extract", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, s.store.Len())
}
