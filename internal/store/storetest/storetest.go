// Package storetest provides throwaway SQLite databases for tests.
package storetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/judyrop/storefront-api/internal/store"
	"github.com/judyrop/storefront-api/models"
)

// NewDB opens a private in-memory database with foreign keys enforced and
// every model migrated. It is closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// one connection keeps the shared in-memory database alive
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// NewStore wraps NewDB in a Store.
func NewStore(t testing.TB) (*store.Store, *gorm.DB) {
	t.Helper()
	db := NewDB(t)
	return store.New(db), db
}
