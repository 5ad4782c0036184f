package dto

import (
	"time"

	"github.com/cuongbtq/lead-generator/internal/domain"
)

// FromRequirements converts domain requirements to their wire form
func FromRequirements(r domain.Requirements) RequirementsDTO {
	fields := r.RequiredFields
	if fields == nil {
		fields = []string{}
	}
	return RequirementsDTO{
		Industry:           r.Industry,
		Location:           r.Location,
		RequiredFields:     fields,
		AdditionalCriteria: r.AdditionalCriteria,
		MaxResults:         r.MaxResults,
	}
}

// ToRequirements converts a create request to domain requirements
func (r CreateJobRequest) ToRequirements() domain.Requirements {
	return domain.Requirements{
		Industry:           r.Industry,
		Location:           r.Location,
		RequiredFields:     r.RequiredFields,
		AdditionalCriteria: r.AdditionalCriteria,
		MaxResults:         r.MaxResults,
	}
}

// FromJob converts a job snapshot. Results are included only once the job
// has completed.
func FromJob(j *domain.Job, withResults bool) JobDTO {
	out := JobDTO{
		JobID:        j.ID,
		Status:       string(j.Status),
		Progress:     j.Progress,
		Requirements: FromRequirements(j.Requirements),
		ResultsCount: len(j.Results),
		Error:        j.Error,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
	}
	if !j.CompletedAt.IsZero() {
		out.CompletedAt = j.CompletedAt.Format(time.RFC3339)
	}
	if withResults && j.Status == domain.JobStatusCompleted {
		out.Results = make([]ContactDTO, len(j.Results))
		for i, c := range j.Results {
			out.Results[i] = ContactDTO{
				Name:    c.Name,
				Website: c.Website,
				Phone:   c.Phone,
				Email:   c.Email,
				Address: c.Address,
				Rating:  c.Rating,
				Source:  string(c.Source),
			}
		}
	}
	return out
}
