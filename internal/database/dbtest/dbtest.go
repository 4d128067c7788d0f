// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"identityrecon/internal/database"
)

// NewSQLite opens a migrated SQLite database in a temp dir that is removed
// when the test ends.
func NewSQLite(t testing.TB) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{URL: filepath.Join(t.TempDir(), "contacts.db")})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
