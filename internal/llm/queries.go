package llm

import (
	"context"
	"strings"
	"text/template"

	"github.com/cuongbtq/lead-generator/internal/domain"
)

var queryPrompt = template.Must(template.New("queries").Parse(`
Generate 3-5 effective Google search queries for finding business leads with these requirements:
- Industry: {{.Industry}}
- Location: {{.Location}}
- Additional criteria: {{.Criteria}}

Focus on queries that will find business listings with contact information.
Return only the search queries, one per line.

Examples:
dentists in Toronto contact information
dental offices Toronto phone email
Toronto dentistry practices directory
`))

// BuildQueryPrompt renders the query generation prompt for req
func BuildQueryPrompt(req domain.Requirements) string {
	criteria := strings.TrimSpace(req.AdditionalCriteria)
	if criteria == "" {
		criteria = "None"
	}

	var b strings.Builder
	_ = queryPrompt.Execute(&b, struct {
		Industry, Location, Criteria string
	}{req.Industry, req.Location, criteria})
	return b.String()
}

// GenerateQueries asks the model for search queries, one per line
func (c *Client) GenerateQueries(ctx context.Context, req domain.Requirements) ([]string, error) {
	text, err := c.complete(ctx, BuildQueryPrompt(req))
	if err != nil {
		return nil, err
	}
	return ParseQueries(text), nil
}

// ParseQueries splits model output into at most domain.MaxQueries
// non-blank trimmed lines
func ParseQueries(text string) []string {
	queries := make([]string, 0, domain.MaxQueries)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		queries = append(queries, line)
		if len(queries) == domain.MaxQueries {
			break
		}
	}
	return queries
}
