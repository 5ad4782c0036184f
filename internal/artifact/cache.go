// Package artifact builds, keeps and expires the downloadable exports of
// completed jobs.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/lead-generator/internal/domain"
)

// DefaultTTL is how long a materialized artifact stays downloadable
const DefaultTTL = time.Hour

// Storage persists artifact content outside the process
type Storage interface {
	// Save writes content under name and returns its location
	Save(ctx context.Context, name string, content []byte) (string, error)
	// Delete removes the content at location. Missing content is not an error.
	Delete(ctx context.Context, location string) error
}

// Options holds cache dependencies
type Options struct {
	Storage Storage
	Clock   domain.Clock
	Logger  *slog.Logger
	TTL     time.Duration
}

// Cache maps job ids to their live artifact
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*domain.Artifact

	storage Storage
	clock   domain.Clock
	logger  *slog.Logger
	ttl     time.Duration
}

// NewCache creates an empty Cache
func NewCache(opts Options) (*Cache, error) {
	if opts.Storage == nil {
		return nil, errors.New("artifact storage is required")
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	return &Cache{
		entries: make(map[string]*domain.Artifact),
		storage: opts.Storage,
		clock:   opts.Clock,
		logger:  opts.Logger.With("component", "artifact_cache"),
		ttl:     opts.TTL,
	}, nil
}

// Materialize serializes contacts, writes them to storage and records the
// artifact with a fresh expiry. An existing artifact for the job is
// overwritten.
func (c *Cache) Materialize(ctx context.Context, jobID string, contacts []domain.Contact) (*domain.Artifact, error) {
	content, err := EncodeCSV(contacts)
	if err != nil {
		return nil, err
	}

	filename := Filename(jobID)
	location, err := c.storage.Save(ctx, filename, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store artifact: %w", err)
	}

	now := c.clock.Now()
	a := &domain.Artifact{
		JobID:      jobID,
		Filename:   filename,
		Content:    content,
		Location:   location,
		TotalLeads: len(contacts),
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.ttl),
	}

	c.mu.Lock()
	c.entries[jobID] = a
	c.mu.Unlock()

	c.logger.Info("Artifact materialized",
		slog.String("job_id", jobID),
		slog.String("location", location),
		slog.Int("total_leads", a.TotalLeads),
		slog.Time("expires_at", a.ExpiresAt),
	)

	return a.Clone(), nil
}

// Get returns the live artifact of a job
func (c *Cache) Get(jobID string) (*domain.Artifact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.entries[jobID]
	if !ok || a.Expired(c.clock.Now()) {
		return nil, domain.ErrArtifactNotFound
	}
	return a.Clone(), nil
}

// Has reports whether the job has a live artifact
func (c *Cache) Has(jobID string) bool {
	_, err := c.Get(jobID)
	return err == nil
}

// Expired returns snapshots of every artifact expired at now
func (c *Cache) Expired(now time.Time) []*domain.Artifact {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*domain.Artifact
	for _, a := range c.entries {
		if a.Expired(now) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// DeleteContent removes the artifact's content from storage
func (c *Cache) DeleteContent(ctx context.Context, a *domain.Artifact) error {
	return c.storage.Delete(ctx, a.Location)
}

// RemoveIfExpired drops the entry for jobID if it is still expired at now.
// An artifact materialized again since the caller's snapshot is kept.
func (c *Cache) RemoveIfExpired(jobID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.entries[jobID]
	if !ok || !a.Expired(now) {
		return false
	}
	delete(c.entries, jobID)
	return true
}

// Len returns the number of entries, live or expired
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
