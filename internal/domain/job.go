package domain

import (
	"strings"
	"time"
)

// Requirements is the immutable snapshot of a lead generation request
type Requirements struct {
	Industry           string   `json:"industry"`
	Location           string   `json:"location"`
	RequiredFields     []string `json:"required_fields"`
	AdditionalCriteria string   `json:"additional_criteria,omitempty"`
	MaxResults         int      `json:"max_results"`
}

// Validate checks that the requirements can drive a search
func (r Requirements) Validate() error {
	if strings.TrimSpace(r.Industry) == "" {
		return NewValidationError("industry", "is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return NewValidationError("location", "is required")
	}
	if r.MaxResults < 0 {
		return NewValidationError("max_results", "must not be negative")
	}
	return nil
}

// Clone returns a copy that shares no memory with r
func (r Requirements) Clone() Requirements {
	if r.RequiredFields != nil {
		r.RequiredFields = append([]string(nil), r.RequiredFields...)
	}
	return r
}

// ExtractedRequirements is the structured result of parsing a freeform request
type ExtractedRequirements struct {
	Requirements
	ClarifyingQuestions []string `json:"clarifying_questions"`
}

// NeedsClarification reports whether the extractor asked follow-up questions
func (e ExtractedRequirements) NeedsClarification() bool {
	return len(e.ClarifyingQuestions) > 0
}

// Contact is one discovered lead
type Contact struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Rating  string `json:"rating"`
	Source  Source `json:"source"`
}

// Job is one lead generation request's lifecycle record
type Job struct {
	ID           string
	Status       JobStatus
	Progress     int
	Requirements Requirements
	Results      []Contact
	Error        string
	CreatedAt    time.Time
	CompletedAt  time.Time
}

// IsTerminal reports whether the job already completed or failed
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Clone returns a deep copy safe to hand out of the store
func (j *Job) Clone() *Job {
	c := *j
	c.Requirements = j.Requirements.Clone()
	if j.Results != nil {
		c.Results = append([]Contact(nil), j.Results...)
	}
	return &c
}

// State returns the tagged state of the job
func (j *Job) State() State {
	switch j.Status {
	case JobStatusCompleted:
		return Completed{Results: j.Results, At: j.CompletedAt}
	case JobStatusFailed:
		return Failed{Reason: j.Error, At: j.CompletedAt}
	default:
		return Processing{Progress: j.Progress}
	}
}

// State is one of Processing, Completed or Failed
type State interface {
	Status() JobStatus
}

// Outcome is a terminal State produced by running a job
type Outcome interface {
	State
	terminal()
}

// Processing is the state of a job that has not finished yet
type Processing struct {
	Progress int
}

func (Processing) Status() JobStatus { return JobStatusProcessing }

// Completed is the terminal state of a successful job
type Completed struct {
	Results []Contact
	At      time.Time
}

func (Completed) Status() JobStatus { return JobStatusCompleted }
func (Completed) terminal()         {}

// Failed is the terminal state of a job that hit an error
type Failed struct {
	Reason string
	At     time.Time
}

func (Failed) Status() JobStatus { return JobStatusFailed }
func (Failed) terminal()         {}
