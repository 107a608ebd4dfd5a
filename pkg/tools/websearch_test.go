package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchServer(t *testing.T, handler http.HandlerFunc) *WebSearchTool {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWebSearchTool("test-key", WithSearchBaseURL(server.URL))
}

func TestWebSearch_NoAPIKey(t *testing.T) {
	tool := NewWebSearchTool("")

	result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "anything"})
	require.NoError(t, err)
	assert.True(t, result.Success, "unavailability is a result, not an error")
	assert.Equal(t, "Web search is not available (API key not configured).", result.Content)
}

func TestWebSearch_FormatsResults(t *testing.T) {
	tool := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "go generics", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		fmt.Fprint(w, `{"organic_results":[
			{"title":"Go Generics","link":"https://go.dev/blog/intro-generics","snippet":"An introduction."},
			{"title":"","link":"","snippet":""}
		]}`)
	})

	content := tool.Search(context.Background(), "go generics")
	assert.True(t, strings.HasPrefix(content, "Here are some relevant results from the web:\n\n"))
	assert.Contains(t, content, "1. **Go Generics**\n   An introduction.\n   Source: https://go.dev/blog/intro-generics\n\n")
	assert.Contains(t, content, "2. **No title**\n   No description\n   Source: No link\n\n")
}

func TestWebSearch_CapsResultCount(t *testing.T) {
	tool := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic_results":[`)
		for i := 0; i < 8; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"title":"r%d","link":"https://example.com/%d","snippet":"s"}`, i, i)
		}
		fmt.Fprint(w, `]}`)
	})

	content := tool.Search(context.Background(), "query")
	assert.Contains(t, content, "5. **r4**")
	assert.NotContains(t, content, "6. **r5**")
}

func TestWebSearch_NoResults(t *testing.T) {
	tool := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic_results":[]}`)
	})

	content := tool.Search(context.Background(), "obscure query")
	assert.Equal(t, "No relevant results found on the web.", content)
}

func TestWebSearch_RemoteFailureIsResultText(t *testing.T) {
	tool := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "anything"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "I encountered an error while searching the web:")
}
