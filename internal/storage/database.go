// Package storage provides SQLite persistence for posts, groups, messages
// and job history.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Database wraps the SQLite database connection
type Database struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at the given path
func Open(dbPath string) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{db: db}

	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB for advanced operations
func (d *Database) DB() *sql.DB {
	return d.db
}

// Migrate creates all necessary tables
func (d *Database) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			post_id TEXT UNIQUE NOT NULL,
			author TEXT DEFAULT '',
			user_id TEXT DEFAULT '',
			content TEXT DEFAULT '',
			is_lead INTEGER DEFAULT 0,
			is_contacted INTEGER DEFAULT 0,
			classified INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			group_id TEXT DEFAULT '',
			bot_id TEXT DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_posts_lead ON posts(is_lead, is_contacted, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_bot ON posts(bot_id)`,

		`CREATE TABLE IF NOT EXISTS groups (
			group_id TEXT NOT NULL,
			bot_id TEXT NOT NULL,
			last_scrape_date DATETIME,
			last_run_error INTEGER DEFAULT 0,
			last_error_message TEXT DEFAULT '',
			PRIMARY KEY (group_id, bot_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sent_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			post_author TEXT DEFAULT '',
			post_content TEXT DEFAULT '',
			content TEXT DEFAULT '',
			group_id TEXT DEFAULT '',
			bot_id TEXT DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			bot_id TEXT NOT NULL,
			job_type TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			progress REAL DEFAULT 0,
			current_step TEXT DEFAULT '',
			log_message TEXT DEFAULT '',
			triggered_by TEXT DEFAULT 'manual',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// TotalPages computes the page count for a paginated query.
func TotalPages(total, perPage int) int {
	if total == 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
