package provider

import (
	"context"
	"errors"
	"fmt"

	"resty.dev/v3"

	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

const tavilyBaseURL = "https://api.tavily.com"

// Tavily implements ResearchProvider against the Tavily search API.
type Tavily struct {
	client *resty.Client
	apiKey string
}

// TavilyOption configures the Tavily client.
type TavilyOption func(*Tavily)

// WithTavilyBaseURL overrides the API endpoint, mainly for tests.
func WithTavilyBaseURL(url string) TavilyOption {
	return func(t *Tavily) { t.client.SetBaseURL(url) }
}

// NewTavily creates a research provider. An empty API key is a
// construction error: callers representing "research not configured"
// should pass a nil ResearchProvider instead.
func NewTavily(apiKey string, opts ...TavilyOption) (*Tavily, error) {
	if apiKey == "" {
		return nil, errors.New("tavily api key missing")
	}
	t := &Tavily{
		client: resty.New().SetBaseURL(tavilyBaseURL),
		apiKey: apiKey,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// tavilySearchResponse mirrors the fields of the /search response we use.
type tavilySearchResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search implements ResearchProvider. Results arrive ranked by the API;
// duplicates by URL are removed and the list is capped at limit.
func (t *Tavily) Search(ctx context.Context, topic string, limit int) ([]schema.Evidence, error) {
	if limit <= 0 {
		limit = 5
	}

	var out tavilySearchResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"api_key":     t.apiKey,
			"query":       topic,
			"max_results": limit,
		}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, &ProviderError{
			Provider:  "tavily",
			Op:        "search",
			Err:       err,
			Retryable: true,
		}
	}
	if resp.IsError() {
		code := resp.StatusCode()
		return nil, &ProviderError{
			Provider:  "tavily",
			Op:        "search",
			Err:       fmt.Errorf("status %d: %s", code, resp.String()),
			Retryable: code == 429 || code >= 500,
		}
	}

	seen := make(map[string]bool, len(out.Results))
	evidence := make([]schema.Evidence, 0, len(out.Results))
	for _, r := range out.Results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		evidence = append(evidence, schema.Evidence{
			Title:       r.Title,
			URL:         r.URL,
			Snippet:     r.Content,
			PublishedAt: r.PublishedDate,
		})
		if len(evidence) == limit {
			break
		}
	}
	return evidence, nil
}
