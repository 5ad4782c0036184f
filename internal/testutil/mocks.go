// Package testutil holds testify mocks for the external collaborators.
package testutil

import (
	"context"
	"sync"

	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/events"
	"github.com/cuongbtq/lead-generator/internal/search"
	"github.com/stretchr/testify/mock"
)

// MockQueryGenerator mocks aggregator.QueryGenerator
type MockQueryGenerator struct {
	mock.Mock
}

func (m *MockQueryGenerator) GenerateQueries(ctx context.Context, req domain.Requirements) ([]string, error) {
	args := m.Called(ctx, req)
	queries, _ := args.Get(0).([]string)
	return queries, args.Error(1)
}

// MockSearchProvider mocks search.Provider
type MockSearchProvider struct {
	mock.Mock
}

func (m *MockSearchProvider) OrganicSearch(ctx context.Context, query, location string, limit int) (*search.OrganicResults, error) {
	args := m.Called(ctx, query, location, limit)
	res, _ := args.Get(0).(*search.OrganicResults)
	return res, args.Error(1)
}

func (m *MockSearchProvider) PlacesSearch(ctx context.Context, query, location string, limit int) (*search.PlacesResults, error) {
	args := m.Called(ctx, query, location, limit)
	res, _ := args.Get(0).(*search.PlacesResults)
	return res, args.Error(1)
}

// MockRequirementExtractor mocks service.RequirementExtractor
type MockRequirementExtractor struct {
	mock.Mock
}

func (m *MockRequirementExtractor) ExtractRequirements(ctx context.Context, text string) (*domain.ExtractedRequirements, error) {
	args := m.Called(ctx, text)
	res, _ := args.Get(0).(*domain.ExtractedRequirements)
	return res, args.Error(1)
}

// RecordingPublisher collects published events
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.Err
}

// Events returns a copy of the published events
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// Organic builds an organic result set from title/snippet pairs
func Organic(pairs ...[2]string) *search.OrganicResults {
	res := &search.OrganicResults{}
	for _, p := range pairs {
		res.Organic = append(res.Organic, search.OrganicResult{
			Title:   search.FlexString(p[0]),
			Snippet: search.FlexString(p[1]),
		})
	}
	return res
}
