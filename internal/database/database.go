package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the SQLite-backed document store for products, reservations and
// their derived records.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS products (
            id TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL,
            name TEXT NOT NULL,
            description TEXT,
            total_units INTEGER NOT NULL,
            available_units INTEGER NOT NULL,
            daily_rate REAL NOT NULL DEFAULT 0,
            weekly_rate REAL NOT NULL DEFAULT 0,
            monthly_rate REAL NOT NULL DEFAULT 0,
            late_fee_per_day REAL NOT NULL DEFAULT 0,
            published INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            CHECK (available_units >= 0),
            CHECK (available_units <= total_units)
        )`,

		`CREATE TABLE IF NOT EXISTS reservations (
            id TEXT PRIMARY KEY,
            kind TEXT NOT NULL DEFAULT 'rental',
            product_id TEXT NOT NULL,
            product_name TEXT NOT NULL,
            requester_id TEXT NOT NULL,
            provider_id TEXT NOT NULL,
            start_at DATETIME NOT NULL,
            end_at DATETIME NOT NULL,
            quantity INTEGER NOT NULL,
            total_cost REAL NOT NULL DEFAULT 0,
            late_fee REAL NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            history TEXT NOT NULL DEFAULT '[]',
            payment_id TEXT,
            pickup_id TEXT,
            return_id TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE TABLE IF NOT EXISTS payments (
            id TEXT PRIMARY KEY,
            reservation_id TEXT NOT NULL UNIQUE,
            amount REAL NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS pickups (
            id TEXT PRIMARY KEY,
            reservation_id TEXT NOT NULL UNIQUE,
            scheduled_at DATETIME NOT NULL,
            picked_up_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS returns (
            id TEXT PRIMARY KEY,
            reservation_id TEXT NOT NULL UNIQUE,
            returned_at DATETIME NOT NULL,
            late_fee REAL NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_product_id ON reservations(product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_requester_id ON reservations(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_end_at ON reservations(end_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
