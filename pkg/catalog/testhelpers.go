package catalog

import (
	"database/sql"
	"os"
	"testing"
)

// RequireDatabase connects to the database named by TEST_POSTGRES_PRIMARY
// or skips the test. This lets the live-database tests run in CI while
// staying out of the way locally.
func RequireDatabase(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_POSTGRES_PRIMARY")
	if dbURL == "" {
		t.Skip("Skipping test: TEST_POSTGRES_PRIMARY environment variable not set (database not available)")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Skipf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("Database not reachable: %v", err)
	}

	return db
}
