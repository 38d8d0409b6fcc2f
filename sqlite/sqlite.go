// Package sqlite stores extracted records and identifier corrections in
// SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Wait on lock contention instead of failing with "database is locked".
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL is unavailable for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Enable foreign key constraints
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.db = conn

	// Create schema
	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, opts)
}

// createSchema creates the database tables if they don't exist.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			primary_identifier TEXT NOT NULL DEFAULT '',
			document TEXT NOT NULL,
			incomplete INTEGER NOT NULL DEFAULT 0,
			missing TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS record_fields (
			record_id TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			value_index INTEGER NOT NULL,
			field TEXT NOT NULL,
			anchor TEXT NOT NULL DEFAULT '',
			multi INTEGER NOT NULL DEFAULT 0,
			kind TEXT NOT NULL,
			number REAL NOT NULL DEFAULT 0,
			text TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			unit TEXT NOT NULL DEFAULT '',
			flag INTEGER NOT NULL DEFAULT 0,
			source_document TEXT NOT NULL DEFAULT '',
			source_block INTEGER NOT NULL DEFAULT 0,
			source_page INTEGER NOT NULL DEFAULT 0,
			source_sheet TEXT NOT NULL DEFAULT '',
			source_line INTEGER NOT NULL DEFAULT 0,
			source_col INTEGER NOT NULL DEFAULT 0,
			confidence TEXT NOT NULL,
			PRIMARY KEY (record_id, position, value_index)
		);

		CREATE TABLE IF NOT EXISTS record_conflicts (
			record_id TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			field TEXT NOT NULL,
			anchor TEXT NOT NULL DEFAULT '',
			adopted TEXT NOT NULL,
			candidates TEXT NOT NULL,
			PRIMARY KEY (record_id, position)
		);

		CREATE TABLE IF NOT EXISTS corrections (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			original_identifier TEXT NOT NULL,
			corrected_identifier TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_primary_identifier ON records(primary_identifier);
		CREATE INDEX IF NOT EXISTS idx_records_document ON records(document);
	`

	_, err := db.db.Exec(schema)
	return err
}
