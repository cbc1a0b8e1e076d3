package testutil

import (
	"database/sql"
	"testing"

	"datasetprep/internal/db"
	"datasetprep/internal/manifest"

	_ "modernc.org/sqlite"
)

// SetupTestDB creates a temporary in-memory SQLite database with migrations applied.
// The database is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// in-memory databases are per connection
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)
	t.Cleanup(func() { database.Close() })

	if err := db.ApplyMigrations(database, db.MigrationsFS); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	var count int
	err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = 'files'").Scan(&count)
	if err != nil {
		t.Fatalf("failed to verify tables: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected files table, found %d", count)
	}

	return database
}

// SetupTestManifest returns a manifest store backed by SetupTestDB.
func SetupTestManifest(t *testing.T) *manifest.Store {
	t.Helper()
	return manifest.New(SetupTestDB(t))
}
