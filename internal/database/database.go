// Package database is the sqlite system of record: restaurants, call
// logs, confirmed reservations and the relational pending-queue table.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the reservation service.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS restaurants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			phone_number TEXT UNIQUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Confirmed reservations. Date and time stay strings
		// (YYYY-MM-DD / HH:MM) because that is the wire format the
		// normalizer guarantees and the dashboard reads back.
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			restaurant_id TEXT,
			guest_name TEXT,
			guest_phone TEXT,
			date TEXT,
			time TEXT,
			guests INTEGER,
			special_requests TEXT,
			status TEXT NOT NULL DEFAULT 'Confirmed',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Pending queue, relational backend. The draft itself is an
		// opaque JSON document; created_at drives FIFO ordering.
		`CREATE TABLE IF NOT EXISTS pending_reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS call_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			restaurant_id INTEGER,
			call_uuid TEXT,
			intent TEXT,
			outcome TEXT,
			agent_summary TEXT,
			recording_url TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pending_created ON pending_reservations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_restaurant ON reservations(restaurant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_call_logs_restaurant ON call_logs(restaurant_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
