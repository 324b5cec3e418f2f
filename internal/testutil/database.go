package testutil

import (
	"testing"

	"prview/internal/database"
	"prview/internal/database/migrations"
)

// NewTestDatabase creates an in-memory SQLite selection store with all
// migrations applied. It is closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB, FixedClock())

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
