// Package llm implements query generation and requirement extraction on the
// OpenAI chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel is the chat model used when none is configured
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a single completion call
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the SDK retry count for rate limits and 5xx
	DefaultMaxRetries = 2
)

var (
	// ErrAPIKeyNotSet is returned when no OpenAI API key is configured
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

	// ErrEmptyCompletion is returned when the model answers with no choices
	ErrEmptyCompletion = errors.New("no completion choices returned")
)

// Config holds OpenAI client configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int // zero uses DefaultMaxRetries, negative disables retries
	Temperature float64
}

// Client generates search queries and extracts requirements
type Client struct {
	client      openai.Client
	model       string
	timeout     time.Duration
	temperature float64
	logger      *slog.Logger
}

// NewClient creates a new Client
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		logger:      logger.With("component", "llm"),
	}, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}

	started := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("Completion received",
		slog.String("model", string(completion.Model)),
		slog.Int64("tokens", completion.Usage.TotalTokens),
		slog.Duration("latency", time.Since(started)),
	)

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
