package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/theLastOfCats/cinemate-admin/internal/db"
)

// SetupTestDB creates an in-memory SQLite DB with schema, private to t.
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.New(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("Failed to init in-memory db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}
