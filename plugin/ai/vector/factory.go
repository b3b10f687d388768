package vector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrygo/jobmatch/internal/profile"
)

// NewIndexFromProfile builds the index backend selected by the profile.
// db is only used by the pgvector backend.
func NewIndexFromProfile(ctx context.Context, p *profile.Profile, db *sql.DB) (Index, error) {
	switch p.VectorBackend {
	case "", "memory":
		return NewMemoryIndex(), nil
	case "pinecone":
		return NewPineconeIndex(PineconeConfig{
			APIKey:    p.PineconeAPIKey,
			IndexHost: p.PineconeIndexHost,
			Namespace: p.PineconeNamespace,
		})
	case "qdrant":
		return NewQdrantIndex(ctx, QdrantConfig{
			Host:       p.QdrantHost,
			Port:       p.QdrantPort,
			APIKey:     p.QdrantAPIKey,
			UseTLS:     p.QdrantUseTLS,
			Collection: p.QdrantCollection,
			Dimensions: p.AIEmbeddingDimensions,
		})
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("pgvector backend requires a postgres connection")
		}
		return NewPGVectorIndex(ctx, db, p.AIEmbeddingDimensions)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", p.VectorBackend)
	}
}
