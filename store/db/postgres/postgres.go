package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"log/slog"
	"strconv"
	"strings"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/jobmatch/internal/profile"
	"github.com/hrygo/jobmatch/store"
)

// ============================================================================
// POSTGRESQL SUPPORT (Production)
// ============================================================================
// Embeddings live in pgvector columns sized to the configured embedding
// dimensions. The same database can also host the vector index
// (JOBMATCH_VECTOR_BACKEND=pgvector).
// ============================================================================

//go:embed schema.sql
var schema string

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Backfill runs and request traffic share the pool.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{
		db:      db,
		profile: profile,
	}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	dimensions := d.profile.AIEmbeddingDimensions
	if dimensions <= 0 {
		return errors.New("embedding dimensions must be positive to create vector columns")
	}
	stmt := strings.ReplaceAll(schema, "{{DIMENSIONS}}", strconv.Itoa(dimensions))
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	slog.Info("Database schema ready", "driver", "postgres", "dimensions", dimensions)
	return nil
}

// placeholder returns a placeholder for PostgreSQL ($1, $2, ...).
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// placeholders returns n placeholders for PostgreSQL.
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
