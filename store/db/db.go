package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/jobmatch/internal/profile"
	"github.com/hrygo/jobmatch/store"
	"github.com/hrygo/jobmatch/store/db/postgres"
	"github.com/hrygo/jobmatch/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// PostgreSQL: production. Embedding columns use pgvector and the same
// database can serve as the vector index.
// SQLite: development and tests. Embeddings are stored as JSON text.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
