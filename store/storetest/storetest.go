// Package storetest opens throwaway stores for handler and service tests.
package storetest

import (
	"testing"

	"civicvoice/store"

	"github.com/google/uuid"
	gormLogger "gorm.io/gorm/logger"
)

// SQLite returns a GormStore over a private in-memory SQLite database that
// is closed when the test ends.
func SQLite(tb testing.TB) *store.GormStore {
	tb.Helper()
	db, err := store.OpenGorm("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", gormLogger.Silent)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	st, err := store.NewGormStore(db)
	if err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = st.Close() })
	return st
}
