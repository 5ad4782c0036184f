package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cuongbtq/lead-generator/internal/domain"
)

const requirementsPrompt = `
Extract lead generation requirements from this user request: %q

Return a JSON object with these fields:
- industry: The business type/industry they want
- location: Geographic area to search
- required_fields: Array of contact fields needed (name, phone, email, website)
- additional_criteria: Any specific requirements or filters
- max_results: Number of results (default 50)
- clarifying_questions: Array of questions to ask if requirements are unclear

Example response:
{
    "industry": "dentists",
    "location": "Toronto, Canada",
    "required_fields": ["name", "phone", "email", "website"],
    "additional_criteria": "accepting new patients",
    "max_results": 50,
    "clarifying_questions": []
}

If the request is unclear, include clarifying_questions.
`

// ExtractRequirements asks the model to structure a freeform request
func (c *Client) ExtractRequirements(ctx context.Context, text string) (*domain.ExtractedRequirements, error) {
	out, err := c.complete(ctx, fmt.Sprintf(requirementsPrompt, text))
	if err != nil {
		return nil, err
	}
	return ParseRequirements(out)
}

type extractedPayload struct {
	Industry            string          `json:"industry"`
	Location            string          `json:"location"`
	RequiredFields      []string        `json:"required_fields"`
	AdditionalCriteria  string          `json:"additional_criteria"`
	MaxResults          json.RawMessage `json:"max_results"`
	ClarifyingQuestions []string        `json:"clarifying_questions"`
}

// ParseRequirements decodes the model's JSON answer, tolerating a fenced
// code block around it. A missing max_results becomes domain.DefaultMaxResults.
func ParseRequirements(text string) (*domain.ExtractedRequirements, error) {
	var p extractedPayload
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &p); err != nil {
		return nil, fmt.Errorf("failed to decode requirements: %w", err)
	}

	maxResults, err := parseMaxResults(p.MaxResults)
	if err != nil {
		return nil, err
	}

	return &domain.ExtractedRequirements{
		Requirements: domain.Requirements{
			Industry:           p.Industry,
			Location:           p.Location,
			RequiredFields:     p.RequiredFields,
			AdditionalCriteria: p.AdditionalCriteria,
			MaxResults:         maxResults,
		},
		ClarifyingQuestions: p.ClarifyingQuestions,
	}, nil
}

// max_results arrives as a number, a numeric string or not at all
func parseMaxResults(raw json.RawMessage) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return domain.DefaultMaxResults, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid max_results %s: %w", raw, err)
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("invalid max_results %s", raw)
	}
	if f <= 0 {
		return domain.DefaultMaxResults, nil
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(f), nil
}

// StripCodeFence returns the body of the first ```json or ``` block in
// text, or text itself when there is none
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)

	for _, fence := range []string{"```json", "```"} {
		_, after, found := strings.Cut(text, fence)
		if !found {
			continue
		}
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	return text
}
