// Package vector provides the nearest-neighbor index used to retrieve similar jobs and profiles.
// Callers work with EntityRef and raw entity ids; the namespaced index ids never leave this package.
package vector

import "context"

// Index is the backend contract of an approximate nearest-neighbor index.
// Ids passed to and returned from an Index are namespaced ids.
type Index interface {
	// Upsert writes records in one request, overwriting any prior entry with the same id.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK entries nearest to vector, highest score first.
	// Only entries whose metadata equals every filter value are eligible.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error)

	// Delete removes entries by id. Missing ids are not an error.
	Delete(ctx context.Context, ids []string) error
}

// Record is one index entry.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match is one query hit as reported by an Index.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Entry is a vector to upsert for an entity.
type Entry struct {
	Ref      EntityRef
	Vector   []float32
	Metadata map[string]any
}

// SimilarityResult is a query hit with the namespace stripped from its id.
type SimilarityResult struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"` // similarity, higher is closer
	Metadata map[string]any `json:"metadata"`
}
