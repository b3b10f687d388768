// Package timeout defines centralized timeout constants for external AI and index calls.
package timeout

import "time"

// External call timeout constants.
const (
	// EmbeddingTimeout is the timeout for one embeddings request.
	EmbeddingTimeout = 30 * time.Second

	// LLMTimeout is the timeout for one match analysis completion.
	LLMTimeout = 60 * time.Second

	// IndexTimeout is the timeout for one vector index request.
	IndexTimeout = 10 * time.Second

	// CacheTimeout is the timeout for one cache round trip.
	CacheTimeout = 2 * time.Second
)
