// Package storetest opens throwaway SQLite stores for tests.
package storetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/abhisek/wordmine/internal/store"
)

// Open returns a migrated in-memory store private to t. It is closed when
// the test ends.
func Open(t testing.TB) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := store.Open(store.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
