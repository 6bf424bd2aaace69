package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tickerdesk/tickerdesk/core"
)

// SearchResult is a single hit returned by a Searcher.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher performs a web search for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// HTTPSearcher queries a JSON search endpoint: GET {baseURL}?q={query}
// returning a JSON array of results.
type HTTPSearcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSearcher constructs a searcher against the given base URL.
func NewHTTPSearcher(baseURL string, optFns ...func(s *HTTPSearcher)) *HTTPSearcher {
	s := &HTTPSearcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) func(s *HTTPSearcher) {
	return func(s *HTTPSearcher) { s.client = client }
}

// Search implements Searcher.
func (s *HTTPSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search base url: %w", err)
	}

	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var results []SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return results, nil
}

// StaticSearcher returns canned results keyed by substring match on the
// query. Used in tests, examples and offline runs.
type StaticSearcher struct {
	results map[string][]SearchResult
}

// NewStaticSearcher constructs a searcher over a fixed result table.
func NewStaticSearcher(results map[string][]SearchResult) *StaticSearcher {
	return &StaticSearcher{results: results}
}

// Search implements Searcher. Unknown queries return an empty result set,
// not an error.
func (s *StaticSearcher) Search(_ context.Context, query string) ([]SearchResult, error) {
	lower := strings.ToLower(query)
	for key, hits := range s.results {
		if strings.Contains(lower, strings.ToLower(key)) {
			return hits, nil
		}
	}
	return []SearchResult{}, nil
}

// webSearchTool exposes a Searcher as the "web_search" tool. The raw result
// payload is saved as a session artifact and the query is recorded in the
// memory store when those stores are configured.
type webSearchTool struct {
	searcher Searcher
}

// NewWebSearchTool constructs the web search tool over the given Searcher.
func NewWebSearchTool(searcher Searcher) Tool {
	return &webSearchTool{searcher: searcher}
}

func (t *webSearchTool) Name() string { return "web_search" }

func (t *webSearchTool) Description() string {
	return "Search the web for current information. Returns a list of results with title, URL and snippet."
}

func (t *webSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
		},
		"required": []string{"query"},
	}
}

func (t *webSearchTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	raw, ok := args["query"]
	if !ok {
		return nil, fmt.Errorf("missing required field 'query'")
	}

	query, ok := raw.(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("field 'query' must be a non-empty string")
	}

	results, err := t.searcher.Search(tc.Context(), query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if payload, err := json.Marshal(results); err == nil {
		artifactID := fmt.Sprintf("search/%s.json", tc.FunctionCallID())
		if err := tc.SaveArtifact(artifactID, payload); err != nil {
			tc.Logger().Debug("tool.search.artifact_skipped", "error", err.Error())
		}
	}

	if err := tc.StoreMemory(query, map[string]any{"kind": "search_query", "hits": len(results)}); err != nil {
		tc.Logger().Debug("tool.search.memory_skipped", "error", err.Error())
	}

	return formatResults(results), nil
}

// formatResults renders hits as numbered plain text for model consumption.
func formatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(&b, "   %s\n", r.URL)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
