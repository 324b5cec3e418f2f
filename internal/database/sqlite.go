package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"prview/internal/database/migrations"
	"prview/internal/review"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Selection is a stored selection set.
type Selection struct {
	Scope     review.Scope
	IDs       []string
	UpdatedAt time.Time
}

// SQLiteDatabase persists selection sets in SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	clock review.Clock
	path  string
}

// NewSQLiteDatabase opens the database at path, or ":memory:".
// A nil clock uses the wall clock.
func NewSQLiteDatabase(path string, clock review.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	s := NewSQLiteDatabaseFromDB(db, clock)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an already configured connection.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock review.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = review.RealClock{}
	}
	return &SQLiteDatabase{db: db, clock: clock}
}

// OpenConnection opens a SQLite connection with the PRAGMAs the store relies on.
// The pool is limited to one connection so ":memory:" databases are not split
// across connections.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Path is the file the database was opened from; empty when wrapped.
func (s *SQLiteDatabase) Path() string { return s.path }

// LoadSelection returns the ids stored under scope. ok is false when the
// scope was never written.
func (s *SQLiteDatabase) LoadSelection(scope review.Scope) ([]string, bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT ids FROM selections WHERE scope = ?", string(scope)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading selection %s: %w", scope, err)
	}

	ids := []string{}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, false, fmt.Errorf("decoding selection %s: %w", scope, err)
	}
	return ids, true, nil
}

// SaveSelection replaces the ids stored under scope.
func (s *SQLiteDatabase) SaveSelection(scope review.Scope, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding selection %s: %w", scope, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO selections (scope, ids, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET ids = excluded.ids, updated_at = excluded.updated_at`,
		string(scope), string(raw), s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving selection %s: %w", scope, err)
	}
	return nil
}

// ListSelections returns every stored selection ordered by scope.
func (s *SQLiteDatabase) ListSelections() ([]Selection, error) {
	rows, err := s.db.Query("SELECT scope, ids, updated_at FROM selections ORDER BY scope")
	if err != nil {
		return nil, fmt.Errorf("listing selections: %w", err)
	}
	defer rows.Close()

	var out []Selection
	for rows.Next() {
		var (
			scope, raw string
			updated   time.Time
		)
		if err := rows.Scan(&scope, &raw, &updated); err != nil {
			return nil, fmt.Errorf("scanning selection: %w", err)
		}
		ids := []string{}
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("decoding selection %s: %w", scope, err)
		}
		out = append(out, Selection{Scope: review.Scope(scope), IDs: ids, UpdatedAt: updated})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing selections: %w", err)
	}
	return out, nil
}

// ClearSelection removes scope so that it reads as never written.
func (s *SQLiteDatabase) ClearSelection(scope review.Scope) error {
	if _, err := s.db.Exec("DELETE FROM selections WHERE scope = ?", string(scope)); err != nil {
		return fmt.Errorf("clearing selection %s: %w", scope, err)
	}
	return nil
}

// Migrate applies pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations returns an error unless the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the schema version.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.ReadStatus(s.db)
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

var _ review.SelectionStore = (*SQLiteDatabase)(nil)
