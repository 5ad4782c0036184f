package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/lead-generator/internal/api/dto"
	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/service"
	"github.com/gin-gonic/gin"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Service *service.LeadService
	// HealthChecks are run by /health, keyed by dependency name
	HealthChecks map[string]HealthCheck
}

// JobHandler handles lead generation HTTP requests
type JobHandler struct {
	logger  *slog.Logger
	service *service.LeadService
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		logger:  logger,
		service: deps.Service,
	}
}

// writeError maps a service error to its HTTP status and body
func (h *JobHandler) writeError(c *gin.Context, err error) {
	var (
		validationErr   *domain.ValidationError
		notReadyErr     *domain.NotReadyError
		jobFailedErr    *domain.JobFailedError
		collaboratorErr *domain.CollaboratorError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Job ID not found"})

	case errors.Is(err, domain.ErrArtifactNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Artifact not found or expired"})

	case errors.As(err, &notReadyErr):
		progress := notReadyErr.Progress
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:    "Lead generation still in progress. Please wait and try again.",
			Status:   string(domain.JobStatusProcessing),
			Progress: &progress,
		})

	case errors.As(err, &jobFailedErr):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:  jobFailedErr.Error(),
			Status: string(domain.JobStatusFailed),
		})

	case errors.As(err, &collaboratorErr):
		h.logger.Error("Upstream call failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})

	default:
		h.logger.Error("Request failed", slog.String("error", err.Error()))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}
