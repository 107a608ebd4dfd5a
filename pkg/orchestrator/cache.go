package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/curator-ai/curator/pkg/assistants"
)

// AssistantCache memoizes remote assistant identities by configuration key
// so equivalent configurations reuse one live remote object. Entries live
// until process restart; a cached identity is returned unconditionally with
// no freshness check against remote-side drift.
type AssistantCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewAssistantCache() *AssistantCache {
	return &AssistantCache{
		entries: make(map[string]string),
	}
}

// cacheKey derives the configuration key from the enabled tool types and the
// bound index identifiers, both in the order supplied. The key is
// deliberately ordering-sensitive: callers build tool sets and index lists
// deterministically, so equal configurations produce equal keys.
func cacheKey(toolSet []assistants.Tool, indexIDs []string) string {
	types := make([]string, len(toolSet))
	for i, tool := range toolSet {
		types[i] = tool.Type
	}
	return strings.Join(types, "-") + "-" + strings.Join(indexIDs, "-")
}

// GetOrCreate returns the cached assistant identity for key, invoking create
// on a miss and caching its result.
func (c *AssistantCache) GetOrCreate(ctx context.Context, key string, create func(context.Context) (*assistants.Assistant, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.entries[key]; ok {
		return id, nil
	}

	assistant, err := create(ctx)
	if err != nil {
		return "", err
	}

	c.entries[key] = assistant.ID
	return assistant.ID, nil
}

// Len reports the number of cached configurations.
func (c *AssistantCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
