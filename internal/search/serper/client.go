package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/lead-generator/internal/search"
)

const (
	// DefaultBaseURL is the Serper API endpoint root
	DefaultBaseURL = "https://google.serper.dev"

	// DefaultTimeout bounds a single search call
	DefaultTimeout = 30 * time.Second

	// MaxOrganicResults is the largest page Serper returns for web search
	MaxOrganicResults = 100

	// MaxPlacesResults is the largest page Serper returns for places search
	MaxPlacesResults = 20

	userAgent = "LeadGenerator/1.0"
)

// ErrAPIKeyNotSet is returned when no Serper API key is configured
var ErrAPIKeyNotSet = errors.New("serper API key not set")

// Config holds Serper client configuration
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Country  string // gl parameter sent when a location is given
	Language string // hl parameter sent when a location is given
}

// Client calls the Serper search and places endpoints
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Serper client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	return &Client{
		config:     &cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

type searchRequest struct {
	Query    string `json:"q"`
	Num      int    `json:"num"`
	Country  string `json:"gl,omitempty"`
	Language string `json:"hl,omitempty"`
}

// OrganicSearch runs a web search
func (c *Client) OrganicSearch(ctx context.Context, query, location string, limit int) (*search.OrganicResults, error) {
	var out search.OrganicResults
	if err := c.post(ctx, "/search", c.buildRequest(query, location, limit, MaxOrganicResults), &out); err != nil {
		return nil, fmt.Errorf("serper search: %w", err)
	}

	c.logger.Debug("Serper search completed",
		slog.String("query", query),
		slog.Int("results", len(out.Organic)),
	)

	return &out, nil
}

// PlacesSearch runs a places search
func (c *Client) PlacesSearch(ctx context.Context, query, location string, limit int) (*search.PlacesResults, error) {
	var out search.PlacesResults
	if err := c.post(ctx, "/places", c.buildRequest(query, location, limit, MaxPlacesResults), &out); err != nil {
		return nil, fmt.Errorf("serper places: %w", err)
	}

	c.logger.Debug("Serper places search completed",
		slog.String("query", query),
		slog.Int("results", len(out.Places)),
	)

	return &out, nil
}

func (c *Client) buildRequest(query, location string, limit, maxLimit int) searchRequest {
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	req := searchRequest{Query: query, Num: limit}
	if location != "" {
		req.Country = c.config.Country
		req.Language = c.config.Language
	}
	return req
}

func (c *Client) post(ctx context.Context, path string, payload searchRequest, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

var _ search.Provider = (*Client)(nil)
