package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
)

// PGVectorIndex implements Index on a PostgreSQL table with the pgvector extension.
type PGVectorIndex struct {
	db    *sql.DB
	table string
}

// NewPGVectorIndex creates the entity_vector table when missing.
func NewPGVectorIndex(ctx context.Context, db *sql.DB, dimensions int) (*PGVectorIndex, error) {
	idx := &PGVectorIndex{db: db, table: "entity_vector"}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`, idx.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)`, idx.table, idx.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_metadata ON %s USING gin (metadata)`, idx.table, idx.table),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, errors.Wrap(err, "failed to prepare entity_vector table")
		}
	}
	return idx, nil
}

// Upsert implements Index. All records are written in one transaction.
func (p *PGVectorIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin vector upsert")
	}
	defer func() { _ = tx.Rollback() }()

	stmt := `
		INSERT INTO ` + p.table + ` (id, embedding, metadata, updated_ts)
		VALUES ($1, $2, $3, EXTRACT(EPOCH FROM NOW()))
		ON CONFLICT (id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_ts = EXCLUDED.updated_ts
	`
	for _, r := range records {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return errors.Wrapf(err, "failed to encode metadata of %s", r.ID)
		}
		if _, err := tx.ExecContext(ctx, stmt, r.ID, pgvector.NewVector(r.Values), metadata); err != nil {
			return errors.Wrapf(err, "failed to upsert vector %s", r.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit vector upsert")
}

// Query implements Index using cosine distance; score is 1 - distance.
func (p *PGVectorIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode metadata filter")
	}
	if len(filter) == 0 {
		filterJSON = []byte("{}")
	}

	query := `
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM ` + p.table + `
		WHERE metadata @> $2::jsonb
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := p.db.QueryContext(ctx, query, pgvector.NewVector(vector), string(filterJSON), topK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query vectors")
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var m Match
		var metadata []byte
		if err := rows.Scan(&m.ID, &metadata, &m.Score); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector match")
		}
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return nil, errors.Wrapf(err, "failed to decode metadata of %s", m.ID)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// Delete implements Index.
func (p *PGVectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `DELETE FROM `+p.table+` WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "failed to delete vectors")
}

var _ Index = (*PGVectorIndex)(nil)
