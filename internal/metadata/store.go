// Package metadata is the embedded relational store behind the filesystem
// namespace. Directories, files, and filenodes live in a single SQLite file;
// access goes through a small query builder over static schema declarations.
package metadata

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides access to the metadata database file. It holds no open
// connection: every terminal query opens a fresh connection and closes it
// before returning. Serialization comes from the caller's single-threaded
// dispatch, not from a pool.
type Store struct {
	path string
}

// NewStore returns a store for the database file at path. The file is
// created lazily on first use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}

// open dials a fresh connection to the database file.
func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("open metadata store %s: %w", s.path, err)
	}
	return db, nil
}

// EnsureTable creates the schema's table if it is not already present. The
// check is a name lookup in the sqlite_master catalog; there is no migration
// of existing tables.
func (s *Store) EnsureTable(schema Schema) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	var count int
	err = db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		schema.Table,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("probe table %s: %w", schema.Table, err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec(schema.DDL()); err != nil {
		return fmt.Errorf("create table %s: %w", schema.Table, err)
	}
	return nil
}

// Query begins a query builder against the schema's table.
func (s *Store) Query(schema Schema) *QueryBuilder {
	return &QueryBuilder{store: s, schema: schema}
}
