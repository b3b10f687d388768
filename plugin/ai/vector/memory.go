package vector

import (
	"context"
	"fmt"
	"maps"
	"math"
	"reflect"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index with exact cosine search.
// It backs development setups and tests.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]*storedEmbedding
	order   []string // insertion order, used for stable tie-breaking
}

type storedEmbedding struct {
	Vector   []float32
	Metadata map[string]any
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string]*storedEmbedding),
	}
}

// Upsert implements Index.
func (m *MemoryIndex) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record id is required")
		}
		if _, ok := m.entries[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		m.entries[r.ID] = &storedEmbedding{
			Vector:   append([]float32(nil), r.Values...),
			Metadata: maps.Clone(r.Metadata),
		}
	}
	return nil
}

// Query implements Index.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []Match
	for _, id := range m.order {
		stored := m.entries[id]
		if !matchesFilter(stored.Metadata, filter) {
			continue
		}
		results = append(results, Match{
			ID:       id,
			Score:    cosineSimilarity(vector, stored.Vector),
			Metadata: maps.Clone(stored.Metadata),
		})
	}

	// Sort by score descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Delete implements Index.
func (m *MemoryIndex) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if _, ok := m.entries[id]; !ok {
			continue
		}
		delete(m.entries, id)
		for i, existing := range m.order {
			if existing == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// matchesFilter checks if metadata matches the filter conditions.
// A filter key missing from metadata is a non-match.
func matchesFilter(metadata, filter map[string]any) bool {
	for key, value := range filter {
		metaValue, ok := metadata[key]
		if !ok {
			return false
		}
		if !valuesEqual(metaValue, value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ Index = (*MemoryIndex)(nil)
