// Package store manages the SQLite database holding the local catalog
// records and their remote id/version linkage.
//
// Only this package may open or query the database. All other packages
// receive a [*Store] and call its methods. Remote refs are written row by row
// immediately after each successful sync, so a crash mid-batch leaves synced
// rows correctly marked and only unsynced ones pending retry.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/BrandonGoding/squaresync/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    name           TEXT    NOT NULL UNIQUE,
    description    TEXT    NOT NULL DEFAULT '',
    active         INTEGER NOT NULL DEFAULT 1,
    square_id      TEXT,
    square_version INTEGER
);

CREATE TABLE IF NOT EXISTS tax_rates (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    name           TEXT    NOT NULL,
    percentage     TEXT    NOT NULL,
    inclusive      INTEGER NOT NULL DEFAULT 0,
    active         INTEGER NOT NULL DEFAULT 1,
    square_id      TEXT,
    square_version INTEGER
);

CREATE TABLE IF NOT EXISTS inventory_items (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    name                     TEXT    NOT NULL,
    description              TEXT    NOT NULL DEFAULT '',
    price_cents              INTEGER NOT NULL DEFAULT 0,
    currency                 TEXT    NOT NULL DEFAULT 'USD',
    is_taxable               INTEGER NOT NULL DEFAULT 0,
    tax_rate_id              INTEGER REFERENCES tax_rates (id),
    category_id              INTEGER REFERENCES categories (id),
    parent_id                INTEGER REFERENCES inventory_items (id),
    active                   INTEGER NOT NULL DEFAULT 1,
    square_item_id           TEXT,
    square_item_version      INTEGER,
    square_variation_id      TEXT,
    square_variation_version INTEGER
);

CREATE TABLE IF NOT EXISTS membership_types (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    name                     TEXT    NOT NULL UNIQUE,
    description              TEXT    NOT NULL DEFAULT '',
    duration_months          INTEGER NOT NULL DEFAULT 12,
    price_cents              INTEGER NOT NULL DEFAULT 0,
    currency                 TEXT    NOT NULL DEFAULT 'USD',
    active                   INTEGER NOT NULL DEFAULT 1,
    square_item_id           TEXT,
    square_item_version      INTEGER,
    square_variation_id      TEXT,
    square_variation_version INTEGER
);

CREATE TABLE IF NOT EXISTS bookings (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    film_title          TEXT    NOT NULL,
    film_description    TEXT    NOT NULL DEFAULT '',
    start_date          TEXT    NOT NULL,
    end_date            TEXT    NOT NULL,
    confirmed           INTEGER NOT NULL DEFAULT 0,
    square_item_id      TEXT,
    square_item_version INTEGER
);

CREATE TABLE IF NOT EXISTS showtimes (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    booking_id               INTEGER NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
    shows_at                 TEXT    NOT NULL,
    square_variation_id      TEXT,
    square_variation_version INTEGER,
    UNIQUE (booking_id, shows_at)
);

CREATE TABLE IF NOT EXISTS ticket_rates (
    rate_type TEXT PRIMARY KEY,
    price     TEXT NOT NULL,
    currency  TEXT NOT NULL DEFAULT 'USD'
);

CREATE INDEX IF NOT EXISTS idx_inventory_parent   ON inventory_items (parent_id);
CREATE INDEX IF NOT EXISTS idx_showtimes_booking  ON showtimes (booking_id);
`

// Store is the SQLite-backed local entity repository.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the catalog database:
// ~/.local/share/squaresync/catalog.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "squaresync", "catalog.db"), nil
}

// Open opens (or creates) the SQLite database at path, applies the schema, and
// configures WAL mode for better concurrent read performance.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the schema DDL idempotently (CREATE IF NOT EXISTS).
func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// --- helpers -----------------------------------------------------------------

// scanner matches both *sql.Row and *sql.Rows so scan helpers can be reused.
type scanner interface {
	Scan(dest ...any) error
}

// remoteRef builds a model.RemoteRef from nullable columns.
func remoteRef(id sql.NullString, version sql.NullInt64) model.RemoteRef {
	ref := model.RemoteRef{}
	if id.Valid && id.String != "" {
		ref.ID = id.String
		if version.Valid {
			v := version.Int64
			ref.Version = &v
		}
	}
	return ref
}

// refArgs converts a RemoteRef to SQL arguments, writing NULL for unset parts.
func refArgs(ref model.RemoteRef) (id, version any) {
	if ref.ID == "" {
		return nil, nil
	}
	if ref.Version == nil {
		return ref.ID, nil
	}
	return ref.ID, *ref.Version
}

// Dates and times are formatted in the value's own location. Showtimes in
// particular must keep their wall-clock offset: matinee pricing compares the
// local screening hour, which a forced UTC conversion would shift.
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullID(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// checkOneRow turns a zero-row UPDATE into an error so a bad primary key
// cannot silently drop a remote ref write.
func checkOneRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s id=%d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s id=%d: no such row", what, id)
	}
	return nil
}
