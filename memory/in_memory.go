// Package memory provides MemoryStore implementations for session-scoped
// recall (for example the queries issued by the search tool).
package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tickerdesk/tickerdesk/core"
)

// storedMemory is the internal representation persisted by InMemoryStore.
type storedMemory struct {
	id       string
	content  string
	metadata map[string]any
}

// InMemoryStore is a naive process-local MemoryStore: append-only stored
// memories with case-insensitive substring Search assigning a constant score
// of 1.0 to every hit. Suitable for tests and demos; swap in a semantic index
// for production retrieval.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[string][]storedMemory // sessionID -> stored memories in insertion order
}

// NewInMemoryStore creates a new in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[string][]storedMemory)}
}

// Search performs substring matching over stored memories in insertion order
// up to the provided limit. An empty query matches everything.
func (m *InMemoryStore) Search(sessionID string, query string, limit int) ([]core.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []core.SearchResult{}
	lower := strings.ToLower(query)
	for _, stored := range m.storage[sessionID] {
		if limit > 0 && len(results) >= limit {
			break
		}
		if query != "" && !strings.Contains(strings.ToLower(stored.content), lower) {
			continue
		}
		md := make(map[string]any, len(stored.metadata))
		for k, v := range stored.metadata {
			md[k] = v
		}
		results = append(results, core.SearchResult{
			ID:       stored.id,
			Content:  stored.content,
			Score:    1.0,
			Metadata: md,
		})
	}
	return results, nil
}

// Store appends a new memory with a simple incremental id.
func (m *InMemoryStore) Store(sessionID string, content string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("mem_%d", len(m.storage[sessionID]))
	m.storage[sessionID] = append(m.storage[sessionID], storedMemory{
		id:       id,
		content:  content,
		metadata: metadata,
	})
	return nil
}

// Delete removes a stored memory by id.
func (m *InMemoryStore) Delete(sessionID string, memoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	memories := m.storage[sessionID]
	for i, stored := range memories {
		if stored.id == memoryID {
			m.storage[sessionID] = append(memories[:i], memories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("memory not found")
}
