package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// OpenDatabase opens (or creates) the ledger database at path and ensures the
// schema exists. The connection pool is capped at a single connection: the
// ledger is single-writer, and one connection means every transaction owns the
// database exclusively while it runs.
func OpenDatabase(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// SetupDatabase initializes the database connection from configuration
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	return OpenDatabase(cfg.Database.Path)
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create items table. available_stock is derived, never stored; the CHECK
	// keeps 0 <= reserved_stock <= total_stock even against buggy SQL.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			icon TEXT NOT NULL,
			description TEXT,
			notes TEXT,
			total_stock INTEGER NOT NULL DEFAULT 0 CHECK (total_stock >= 0),
			reserved_stock INTEGER NOT NULL DEFAULT 0
				CHECK (reserved_stock >= 0 AND reserved_stock <= total_stock),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create persons table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS persons (
			id TEXT PRIMARY KEY,
			external_id TEXT NOT NULL,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			phone TEXT,
			email TEXT,
			notes TEXT,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create loans table. Dates are ISO text on purpose: they carry no
	// time-of-day and must compare lexicographically, and a TEXT declaration
	// keeps the driver from parsing them into timestamps.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS loans (
			id TEXT PRIMARY KEY,
			person_id TEXT NOT NULL REFERENCES persons(id),
			start_date TEXT NOT NULL,
			expected_end_date TEXT NOT NULL,
			actual_end_date TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			notes TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create loan_items table (many-to-many)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS loan_items (
			id TEXT PRIMARY KEY,
			loan_id TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
			item_id TEXT NOT NULL REFERENCES items(id),
			quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
			UNIQUE (loan_id, item_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create events table (append-only audit trail)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			loan_id TEXT,
			person_id TEXT
		)
	`)
	if err != nil {
		return err
	}

	// external_id is a natural key only among active persons: deactivated
	// records keep theirs so a returning person can be reactivated.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_persons_external_id_active
		ON persons(external_id) WHERE active = 1
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_loans_person_id ON loans(person_id)",
		"CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status)",
		"CREATE INDEX IF NOT EXISTS idx_loans_start_date ON loans(start_date)",
		"CREATE INDEX IF NOT EXISTS idx_loan_items_loan_id ON loan_items(loan_id)",
		"CREATE INDEX IF NOT EXISTS idx_events_loan_id ON events(loan_id)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
