package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/lead-generator/internal/api/dto"
	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/service"
	"github.com/gin-gonic/gin"
)

// ExtractRequirements handles POST /api/v1/requirements/extract
// Turns a freeform request into structured requirements without creating a job
func (h *JobHandler) ExtractRequirements(c *gin.Context) {
	var req dto.ExtractRequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.service.ExtractRequirements(c.Request.Context(), req.Request)
	if err != nil {
		h.writeError(c, err)
		return
	}

	extracted := dto.FromRequirements(res.Requirements.Requirements)
	if !res.Ready() {
		c.JSON(http.StatusOK, dto.ExtractRequirementsResponse{
			Status:                "needs_clarification",
			ExtractedRequirements: &extracted,
			Questions:             res.Requirements.ClarifyingQuestions,
			Message:               "I need some clarification to generate the best leads for you.",
		})
		return
	}

	c.JSON(http.StatusOK, dto.ExtractRequirementsResponse{
		Status:       "requirements_ready",
		Requirements: &extracted,
		Message:      fmt.Sprintf("Ready to generate leads for %s in %s.", orDefault(extracted.Industry, "businesses"), orDefault(extracted.Location, "specified location")),
	})
}

// CreateJob handles POST /api/v1/jobs
// Starts a background lead generation job
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	job, err := h.service.CreateJob(c.Request.Context(), req.ToRequirements())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.CreateJobResponse{
		JobID:               job.ID,
		Status:              string(job.Status),
		Progress:            job.Progress,
		EstimatedCompletion: service.EstimatedCompletion(job.CreatedAt).Format(time.RFC3339),
		ResultsCount:        0,
		Message:             "Lead generation started. This will take 2-5 minutes to complete.",
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
// Returns the current snapshot of a job, including results once completed
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.service.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job, true))
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs newest first with optional status filter and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cursor"})
		return
	}

	page, err := h.service.ListJobs(c.Request.Context(), service.ListJobsParams{
		Status:   domain.JobStatus(req.Status),
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	jobs := make([]dto.JobDTO, len(page.Jobs))
	for i, job := range page.Jobs {
		jobs[i] = dto.FromJob(job, false)
	}

	resp := dto.ListJobsResponse{Jobs: jobs}
	if page.Next != nil {
		resp.NextCursor = EncodeJobCursor(page.Next)
	}
	c.JSON(http.StatusOK, resp)
}

// MaterializeArtifact handles POST /api/v1/jobs/:job_id/artifact
// Generates the CSV export of a completed job
func (h *JobHandler) MaterializeArtifact(c *gin.Context) {
	jobID := c.Param("job_id")

	a, err := h.service.MaterializeArtifact(c.Request.Context(), jobID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ArtifactResponse{
		JobID:       a.JobID,
		Status:      string(domain.JobStatusCompleted),
		TotalLeads:  a.TotalLeads,
		Fields:      domain.ArtifactFields,
		Message:     fmt.Sprintf("CSV generated with %d leads!", a.TotalLeads),
		CSVContent:  string(a.Content),
		Filename:    a.Filename,
		ExpiresAt:   a.ExpiresAt.Format(time.RFC3339),
		DownloadURL: c.Request.URL.Path,
	})
}

// DownloadArtifact handles GET /api/v1/jobs/:job_id/artifact
// Serves the live CSV export as a file download
func (h *JobHandler) DownloadArtifact(c *gin.Context) {
	jobID := c.Param("job_id")

	a, err := h.service.GetArtifact(c.Request.Context(), jobID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", a.Content)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
