// Package testing provides testing utilities and helpers for the folio project.
package testing

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/aristath/folio/internal/database"
)

// NewTestDB creates a temporary-file SQLite database with the embedded schema applied.
// Returns the database instance and a cleanup function that closes the connection
// and removes the file. The cleanup function is idempotent.
//
// Supported schema names:
//   - "folio" - applies folio_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// Temporary files keep every test isolated, including across WAL connections
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:   tmpPath,
		Driver: database.DriverPureGo,
		Name:   name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(tmpPath + suffix)
		}
	}
}

// NewTestDBWithSchema creates a temporary database and executes the given schema on it
func NewTestDBWithSchema(t *testing.T, name string, schema string) (*database.DB, func()) {
	t.Helper()

	db, cleanup := NewTestDB(t, name)
	if _, err := db.Conn().Exec(schema); err != nil {
		cleanup()
		t.Fatalf("Failed to apply schema to test database %s: %v", name, err)
	}
	return db, cleanup
}

// GetRawConnection returns the underlying *sql.DB for direct queries in assertions
func GetRawConnection(db *database.DB) *sql.DB {
	return db.Conn()
}
