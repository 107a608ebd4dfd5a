package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/curator-ai/curator/pkg/httpclient"
)

const (
	// WebSearchToolName is how the remote run requests a web lookup.
	WebSearchToolName = "search_web"

	serpBaseURL      = "https://serpapi.com/search.json"
	maxSearchResults = 5

	msgSearchUnavailable = "Web search is not available (API key not configured)."
	msgNoResults         = "No relevant results found on the web."
)

// WebSearchTool looks up a query on the web through a SerpAPI-compatible
// endpoint. Failures come back as explanatory result strings, not errors, so
// the surrounding run can proceed gracefully.
type WebSearchTool struct {
	apiKey     string
	baseURL    string
	httpClient *httpclient.Client
}

type WebSearchOption func(*WebSearchTool)

func WithSearchBaseURL(baseURL string) WebSearchOption {
	return func(t *WebSearchTool) {
		t.baseURL = baseURL
	}
}

func WithSearchHTTPClient(hc *httpclient.Client) WebSearchOption {
	return func(t *WebSearchTool) {
		t.httpClient = hc
	}
}

func NewWebSearchTool(apiKey string, opts ...WebSearchOption) *WebSearchTool {
	t := &WebSearchTool{
		apiKey:  apiKey,
		baseURL: serpBaseURL,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
}

func (t *WebSearchTool) GetName() string {
	return WebSearchToolName
}

func (t *WebSearchTool) GetDescription() string {
	return "Search the web for current and factual information"
}

func (t *WebSearchTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        WebSearchToolName,
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "The search query to look up on the web",
				Required:    true,
			},
		},
	}
}

// Execute performs the search. The returned ToolResult always succeeds; a
// failed or empty search yields a sentinel result string.
func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	query, _ := args["query"].(string)
	content := t.Search(ctx, query)

	return ToolResult{
		Success:       true,
		Content:       content,
		ToolName:      WebSearchToolName,
		ExecutionTime: time.Since(start),
	}, nil
}

// Search returns up to five formatted result entries, or a sentinel string
// when the search cannot be performed.
func (t *WebSearchTool) Search(ctx context.Context, query string) string {
	if t.apiKey == "" {
		slog.Error("web search requested without API key")
		return msgSearchUnavailable
	}

	slog.Info("searching web", "query", query)

	results, err := t.fetchResults(ctx, query)
	if err != nil {
		slog.Error("web search failed", "query", query, "error", err)
		return fmt.Sprintf("I encountered an error while searching the web: %v", err)
	}

	if len(results) == 0 {
		return msgNoResults
	}

	var sb strings.Builder
	sb.WriteString("Here are some relevant results from the web:\n\n")
	for i, result := range results {
		if i >= maxSearchResults {
			break
		}
		title := result.Title
		if title == "" {
			title = "No title"
		}
		snippet := result.Snippet
		if snippet == "" {
			snippet = "No description"
		}
		link := result.Link
		if link == "" {
			link = "No link"
		}
		fmt.Fprintf(&sb, "%d. **%s**\n   %s\n   Source: %s\n\n", i+1, title, snippet, link)
	}

	return sb.String()
}

func (t *WebSearchTool) fetchResults(ctx context.Context, query string) ([]organicResult, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", t.apiKey)
	params.Set("num", fmt.Sprintf("%d", maxSearchResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
		}
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("no response received")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return parsed.OrganicResults, nil
}
