package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// EventRow is a stored battle journal entry
type EventRow struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Ship      string    `json:"ship"`
	Class     string    `json:"class,omitempty"`
	Other     string    `json:"other,omitempty"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	// WAL lets the HTTP readers run alongside the writer
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS battle_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		ship TEXT NOT NULL,
		class TEXT NOT NULL DEFAULT '',
		other TEXT NOT NULL DEFAULT '',
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_battle_events_type ON battle_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_battle_events_ship ON battle_events(ship);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("journal migration: %w", err)
	}
	return nil
}

// InsertEvents writes a batch of events in one transaction
func (db *DB) InsertEvents(events []BattleEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO battle_events (event_type, ship, class, other, x, y, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, evt := range events {
		if _, err := stmt.Exec(evt.Type, evt.Ship, evt.Class, evt.Other, evt.X, evt.Y, evt.Timestamp.UTC()); err != nil {
			return fmt.Errorf("insert %s event: %w", evt.Type, err)
		}
	}
	return tx.Commit()
}

// RecentEvents returns the newest events first
func (db *DB) RecentEvents(limit int) ([]EventRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, event_type, ship, class, other, x, y, created_at
		FROM battle_events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventRow
	for rows.Next() {
		var r EventRow
		if err := rows.Scan(&r.ID, &r.Type, &r.Ship, &r.Class, &r.Other, &r.X, &r.Y, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// EventCounts returns how many events of each type were recorded
func (db *DB) EventCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT event_type, COUNT(*) FROM battle_events GROUP BY event_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// SinkingsBy ranks attackers by the number of ships they sank
func (db *DB) SinkingsBy(limit int) (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT other, COUNT(*) FROM battle_events
		WHERE event_type = ? AND other != ''
		GROUP BY other ORDER BY COUNT(*) DESC LIMIT ?
	`, EvtSunk, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		result[name] = count
	}
	return result, rows.Err()
}
