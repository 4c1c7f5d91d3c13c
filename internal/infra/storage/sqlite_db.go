package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite opens the save database and creates the schemas for save
// slots, research state and the event ledger.
func InitSQLite(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT PRIMARY KEY,
			team TEXT NOT NULL,
			season INTEGER NOT NULL,
			week INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			state BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS research_graphs (
			slot TEXT NOT NULL,
			team TEXT NOT NULL,
			resource_points INTEGER NOT NULL,
			total_engineers INTEGER NOT NULL,
			difficulty TEXT NOT NULL,
			autonomous BOOLEAN NOT NULL DEFAULT 0,
			PRIMARY KEY (slot, team),
			FOREIGN KEY (slot) REFERENCES saves(slot) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS research_nodes (
			slot TEXT NOT NULL,
			team TEXT NOT NULL,
			node_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			state TEXT NOT NULL,
			invested_work REAL NOT NULL DEFAULT 0.0,
			PRIMARY KEY (slot, team, node_id),
			FOREIGN KEY (slot, team) REFERENCES research_graphs(slot, team) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS research_active (
			slot TEXT NOT NULL,
			team TEXT NOT NULL,
			node_id TEXT NOT NULL,
			engineers INTEGER NOT NULL,
			PRIMARY KEY (slot, team, node_id),
			FOREIGN KEY (slot, team) REFERENCES research_graphs(slot, team) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			session TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			season INTEGER NOT NULL,
			week INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON events(session);`,
		`CREATE INDEX IF NOT EXISTS idx_events_actor_id ON events(actor_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_week ON events(session, season, week);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
