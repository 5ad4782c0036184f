package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id is unknown to the store
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when inserting a job id that already exists
	ErrDuplicateJob = errors.New("job already exists")

	// ErrJobTerminal is returned when mutating a job that already completed or failed
	ErrJobTerminal = errors.New("job already in terminal state")

	// ErrJobNotReady is returned when an artifact is requested before the job completes
	ErrJobNotReady = errors.New("job still processing")

	// ErrArtifactNotFound is returned when no live artifact exists for a job
	ErrArtifactNotFound = errors.New("artifact not found")
)

// ValidationError reports malformed requirements. No job is created.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error for a field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// CollaboratorError wraps a failure of an external search or text generation call
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewCollaboratorError creates a new collaborator error
func NewCollaboratorError(op string, err error) error {
	return &CollaboratorError{Op: op, Err: err}
}

// NotReadyError carries the current progress of a job that is still processing
type NotReadyError struct {
	Progress int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("job still processing (progress %d%%)", e.Progress)
}

func (e *NotReadyError) Is(target error) bool {
	return target == ErrJobNotReady
}

// JobFailedError carries the recorded failure cause of a job
type JobFailedError struct {
	Reason string
}

func (e *JobFailedError) Error() string {
	return "lead generation failed: " + e.Reason
}
