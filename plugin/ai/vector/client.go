package vector

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/plugin/ai/timeout"
)

// MetadataKind is the metadata field every entry carries with its entity kind.
const MetadataKind = "kind"

// Client performs entity-level operations against an Index.
type Client struct {
	index Index
}

// NewClient creates a client over the given index backend.
func NewClient(index Index) *Client {
	return &Client{index: index}
}

// UpsertEntity writes one entry under the entity's namespaced id.
func (c *Client) UpsertEntity(ctx context.Context, ref EntityRef, vector []float32, metadata map[string]any) error {
	return c.BatchUpsert(ctx, []Entry{{Ref: ref, Vector: vector, Metadata: metadata}})
}

// BatchUpsert writes all entries in one index request.
func (c *Client) BatchUpsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	records := make([]Record, len(entries))
	for i, e := range entries {
		if !e.Ref.Kind.Valid() || e.Ref.ID == "" {
			return apperrors.Validation(fmt.Sprintf("invalid entity reference %q", e.Ref.String()))
		}
		metadata := make(map[string]any, len(e.Metadata)+1)
		maps.Copy(metadata, e.Metadata)
		metadata[MetadataKind] = string(e.Ref.Kind)
		records[i] = Record{ID: e.Ref.String(), Values: e.Vector, Metadata: metadata}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout.IndexTimeout)
	defer cancel()

	if err := c.index.Upsert(callCtx, records); err != nil {
		return apperrors.Upstream(fmt.Sprintf("vector upsert of %d entries failed", len(records)), err)
	}
	return nil
}

// Query returns up to topK entries of the given kind nearest to vector.
// Results keep the index's order and carry raw entity ids.
func (c *Client) Query(ctx context.Context, kind EntityKind, vector []float32, topK int, filter map[string]any) ([]SimilarityResult, error) {
	if topK <= 0 {
		return []SimilarityResult{}, nil
	}

	merged := make(map[string]any, len(filter)+1)
	maps.Copy(merged, filter)
	merged[MetadataKind] = string(kind)

	callCtx, cancel := context.WithTimeout(ctx, timeout.IndexTimeout)
	defer cancel()

	matches, err := c.index.Query(callCtx, vector, topK, merged)
	if err != nil {
		return nil, apperrors.Upstream("vector query failed", err)
	}

	results := make([]SimilarityResult, 0, len(matches))
	for _, m := range matches {
		ref, err := ParseEntityRef(m.ID)
		if err != nil || ref.Kind != kind {
			slog.Warn("skipping vector match outside the queried namespace", "id", m.ID, "kind", kind)
			continue
		}
		results = append(results, SimilarityResult{ID: ref.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return results, nil
}

// DeleteEntity removes the entity's entry. Failures are logged, never returned:
// a stale entry is overwritten by the next upsert or backfill.
func (c *Client) DeleteEntity(ctx context.Context, ref EntityRef) {
	callCtx, cancel := context.WithTimeout(ctx, timeout.IndexTimeout)
	defer cancel()

	if err := c.index.Delete(callCtx, []string{ref.String()}); err != nil {
		slog.Warn("failed to delete vector index entry", "id", ref.String(), "error", err)
	}
}

// DeleteJobEmbedding removes a job's index entry, best effort.
func (c *Client) DeleteJobEmbedding(ctx context.Context, jobID string) {
	c.DeleteEntity(ctx, JobRef(jobID))
}

// DeleteUserEmbedding removes a user's index entry, best effort.
func (c *Client) DeleteUserEmbedding(ctx context.Context, userID string) {
	c.DeleteEntity(ctx, UserRef(userID))
}
