package dto

type RequirementsDTO struct {
	Industry           string   `json:"industry"`
	Location           string   `json:"location"`
	RequiredFields     []string `json:"required_fields"`
	AdditionalCriteria string   `json:"additional_criteria"`
	MaxResults         int      `json:"max_results"`
}

type ExtractRequirementsRequest struct {
	Request string `json:"request" binding:"required"`
}

type ExtractRequirementsResponse struct {
	Status                string           `json:"status"`
	Requirements          *RequirementsDTO `json:"requirements,omitempty"`
	ExtractedRequirements *RequirementsDTO `json:"extracted_requirements,omitempty"`
	Questions             []string         `json:"questions,omitempty"`
	Message               string           `json:"message"`
}

type CreateJobRequest struct {
	Industry           string   `json:"industry" binding:"required"`
	Location           string   `json:"location" binding:"required"`
	RequiredFields     []string `json:"required_fields"`
	AdditionalCriteria string   `json:"additional_criteria"`
	MaxResults         int      `json:"max_results"`
}

type CreateJobResponse struct {
	JobID               string `json:"job_id"`
	Status              string `json:"status"`
	Progress            int    `json:"progress"`
	EstimatedCompletion string `json:"estimated_completion"`
	ResultsCount        int    `json:"results_count"`
	Message             string `json:"message"`
}

type ContactDTO struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Rating  string `json:"rating"`
	Source  string `json:"source"`
}

type JobDTO struct {
	JobID        string          `json:"job_id"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"`
	Requirements RequirementsDTO `json:"requirements"`
	ResultsCount int             `json:"results_count"`
	Results      []ContactDTO    `json:"results,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    string          `json:"created_at"`
	CompletedAt  string          `json:"completed_at,omitempty"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type ArtifactResponse struct {
	JobID       string   `json:"job_id"`
	Status      string   `json:"status"`
	TotalLeads  int      `json:"total_leads"`
	Fields      []string `json:"fields"`
	Message     string   `json:"message"`
	CSVContent  string   `json:"csv_content"`
	Filename    string   `json:"filename"`
	ExpiresAt   string   `json:"expires_at"`
	DownloadURL string   `json:"download_url"`
}

type ErrorResponse struct {
	Error    string `json:"error"`
	Status   string `json:"status,omitempty"`
	Progress *int   `json:"progress,omitempty"`
}
