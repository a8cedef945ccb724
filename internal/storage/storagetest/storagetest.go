// Package storagetest opens throwaway migrated databases for tests.
package storagetest

import (
	"path/filepath"
	"testing"

	"github.com/aman-churiwal/api-manager/internal/storage"
	"gorm.io/gorm/logger"
)

// Returns a migrated SQLite database living in the test's temp dir
func New(t testing.TB) *storage.Database {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}
