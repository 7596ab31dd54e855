package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// InitDatabase initializes the database connection
func InitDatabase() error {
	// Get database connection string from environment
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Test the connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	log.Println("Successfully connected to database")
	return nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id SERIAL PRIMARY KEY,
			description VARCHAR(750) NOT NULL,
			link VARCHAR(2048),
			price DECIMAL(10,2),
			status VARCHAR(20) DEFAULT 'Available',
			user_id INTEGER NOT NULL,
			last_updated_by_id INTEGER,
			image_url VARCHAR(2048),
			price_updated_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id SERIAL PRIMARY KEY,
			item_id INTEGER REFERENCES items(id) ON DELETE CASCADE,
			price DECIMAL(10,2) NOT NULL,
			source VARCHAR(10) NOT NULL DEFAULT 'auto' CHECK (source IN ('initial', 'auto', 'manual')),
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS extraction_log (
			id SERIAL PRIMARY KEY,
			url VARCHAR(2048) NOT NULL,
			domain VARCHAR(255) NOT NULL,
			success BOOLEAN NOT NULL,
			price DECIMAL(10,2),
			method VARCHAR(50),
			error_kind VARCHAR(50),
			response_time_ms INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			message VARCHAR(500) NOT NULL,
			link VARCHAR(500),
			is_read BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_price_history_item ON price_history (item_id, recorded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_extraction_log_domain ON extraction_log (domain, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_items_stale ON items (price_updated_at) WHERE link IS NOT NULL AND link != ''`,
	}

	for _, query := range queries {
		_, err := DB.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
