// Package aggregator fans a job's requirements out into several searches and
// merges the extracted contacts into one deduplicated list.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/extractor"
	"github.com/cuongbtq/lead-generator/internal/search"
)

const (
	// DefaultOrganicLimit is the page size requested from organic search
	DefaultOrganicLimit = 20

	// DefaultPlacesLimit is the page size requested from places search
	DefaultPlacesLimit = 20
)

// QueryGenerator turns requirements into natural language search queries
type QueryGenerator interface {
	GenerateQueries(ctx context.Context, req domain.Requirements) ([]string, error)
}

// ProgressFunc receives the job progress percentage as aggregation advances
type ProgressFunc func(progress int)

// Options holds aggregator dependencies
type Options struct {
	Generator    QueryGenerator
	Search       search.Provider
	Logger       *slog.Logger
	OrganicLimit int
	PlacesLimit  int
}

// Aggregator runs the per-job search fan-out
type Aggregator struct {
	generator    QueryGenerator
	search       search.Provider
	logger       *slog.Logger
	organicLimit int
	placesLimit  int
}

// New creates a new Aggregator
func New(opts Options) (*Aggregator, error) {
	if opts.Generator == nil {
		return nil, errors.New("query generator is required")
	}
	if opts.Search == nil {
		return nil, errors.New("search provider is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OrganicLimit <= 0 {
		opts.OrganicLimit = DefaultOrganicLimit
	}
	if opts.PlacesLimit <= 0 {
		opts.PlacesLimit = DefaultPlacesLimit
	}

	return &Aggregator{
		generator:    opts.Generator,
		search:       opts.Search,
		logger:       opts.Logger.With("component", "aggregator"),
		organicLimit: opts.OrganicLimit,
		placesLimit:  opts.PlacesLimit,
	}, nil
}

// Aggregate generates queries, runs them one after another and returns the
// deduplicated contacts capped at req.MaxResults. Any collaborator failure
// aborts the whole run and discards what was gathered so far.
func (a *Aggregator) Aggregate(ctx context.Context, req domain.Requirements, progress ProgressFunc) ([]domain.Contact, error) {
	if progress == nil {
		progress = func(int) {}
	}

	progress(domain.ProgressGeneratingQuery)

	generated, err := a.generator.GenerateQueries(ctx, req)
	if err != nil {
		return nil, domain.NewCollaboratorError("generate search queries", err)
	}
	queries := normalizeQueries(generated)

	progress(domain.ProgressQueriesReady)

	a.logger.Info("Search queries generated",
		slog.Int("count", len(queries)),
		slog.String("industry", req.Industry),
		slog.String("location", req.Location),
	)

	var all []domain.Contact
	placesQuery := strings.TrimSpace(req.Industry + " " + req.Location)

	for i, query := range queries {
		organic, err := a.search.OrganicSearch(ctx, strings.TrimSpace(query+" "+req.Location), req.Location, a.organicLimit)
		if err != nil {
			return nil, domain.NewCollaboratorError("organic search", err)
		}

		places, err := a.search.PlacesSearch(ctx, placesQuery, req.Location, a.placesLimit)
		if err != nil {
			return nil, domain.NewCollaboratorError("places search", err)
		}

		found := extractor.Extract(organic, places)
		all = append(all, found...)

		a.logger.Debug("Query processed",
			slog.String("query", query),
			slog.Int("contacts", len(found)),
			slog.Int("index", i),
		)

		progress(QueryProgress(i+1, len(queries)))
	}

	return Dedup(all, req.MaxResults), nil
}

// QueryProgress is the progress after done of total queries have completed
func QueryProgress(done, total int) int {
	if total <= 0 {
		return domain.ProgressQueriesReady
	}
	return domain.ProgressQueriesReady + done*domain.ProgressGatherSpan/total
}

// Dedup keeps the first contact per non-empty phone number, drops contacts
// without a phone and stops once limit contacts are kept.
func Dedup(contacts []domain.Contact, limit int) []domain.Contact {
	unique := make([]domain.Contact, 0, min(len(contacts), max(0, limit)))
	seen := make(map[string]struct{}, len(contacts))

	for _, c := range contacts {
		if len(unique) >= limit {
			break
		}
		if c.Phone == "" {
			continue
		}
		if _, dup := seen[c.Phone]; dup {
			continue
		}
		seen[c.Phone] = struct{}{}
		unique = append(unique, c)
	}

	return unique
}

func normalizeQueries(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == domain.MaxQueries {
			break
		}
	}
	return out
}
