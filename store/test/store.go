package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/jobmatch/internal/profile"
	"github.com/hrygo/jobmatch/store"
	"github.com/hrygo/jobmatch/store/db"
)

// testDimensions keeps fixture vectors short.
const testDimensions = 4

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}

// NewTestingStore opens a migrated store on the driver named by DRIVER.
// SQLite runs in memory; PostgreSQL comes from GetPostgresDSN.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{
		Mode:                  "dev",
		Driver:                getDriverFromEnv(),
		AIEmbeddingDimensions: testDimensions,
	}
	switch p.Driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		p.DSN = ":memory:"
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	ts := store.New(driver, p)
	t.Cleanup(func() { _ = ts.Close() })

	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return ts
}
