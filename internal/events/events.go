// Package events publishes job lifecycle notifications.
//
// Publishing is best effort: a failed publish is logged by the caller and
// never feeds back into job state.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/lead-generator/internal/domain"
)

// Event types
const (
	TypeJobCompleted = "job.completed"
	TypeJobFailed    = "job.failed"
)

// Event describes a terminal transition of a job
type Event struct {
	Type         string           `json:"type"`
	JobID        string           `json:"job_id"`
	Status       domain.JobStatus `json:"status"`
	ResultsCount int              `json:"results_count"`
	Error        string           `json:"error,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

// FromOutcome builds the event for a job's terminal outcome
func FromOutcome(jobID string, outcome domain.Outcome) Event {
	ev := Event{JobID: jobID, Status: outcome.Status()}

	switch o := outcome.(type) {
	case domain.Completed:
		ev.Type = TypeJobCompleted
		ev.ResultsCount = len(o.Results)
		ev.OccurredAt = o.At
	case domain.Failed:
		ev.Type = TypeJobFailed
		ev.Error = o.Reason
		ev.OccurredAt = o.At
	}

	return ev
}

// Publisher delivers lifecycle events
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// broker is the subset of the RabbitMQ client used for publishing
type broker interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// BrokerPublisher publishes events as JSON messages to a message broker
type BrokerPublisher struct {
	broker broker
	logger *slog.Logger
}

// NewBrokerPublisher wraps a broker client, typically *rabbitmq.Client
func NewBrokerPublisher(b broker, logger *slog.Logger) *BrokerPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrokerPublisher{broker: b, logger: logger}
}

// Publish marshals ev and sends it with the broker's retry policy
func (p *BrokerPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.broker.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Type, err)
	}

	p.logger.Debug("Job event published",
		slog.String("type", ev.Type),
		slog.String("job_id", ev.JobID),
	)
	return nil
}
