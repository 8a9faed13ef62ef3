// Package siteindex provides the SQLite-backed cross-tenant index of
// rendered notes that feeds the aggregated root listing in multi mode.
package siteindex

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/sowilo/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rendered (
	tenant     TEXT NOT NULL,
	path       TEXT NOT NULL,
	url        TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	summary    TEXT NOT NULL DEFAULT '',
	author     TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	date       DATETIME,
	encrypted  INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (tenant, path)
);

CREATE INDEX IF NOT EXISTS idx_rendered_date ON rendered(date);
`

// DB wraps a sql.DB with site-index operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("siteindex: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("siteindex: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("siteindex: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ReplaceTenant swaps a tenant's rendered set inside one transaction.
func (db *DB) ReplaceTenant(tenant string, entries []models.RenderedNote) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("siteindex: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM rendered WHERE tenant = ?`, tenant); err != nil {
		return fmt.Errorf("siteindex: clear tenant: %w", err)
	}
	if len(entries) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO rendered (tenant, path, url, title, summary, author, category, date, encrypted, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("siteindex: prepare insert: %w", err)
		}
		defer stmt.Close()
		now := time.Now().UTC()
		for _, e := range entries {
			if _, err := stmt.Exec(tenant, e.RelativePath, e.URL, e.Title, e.Summary,
				e.Author, e.Category, e.Date.UTC(), e.Encrypted, now); err != nil {
				return fmt.Errorf("siteindex: insert %s: %w", e.RelativePath, err)
			}
		}
	}
	return tx.Commit()
}

// DeleteTenant drops every rendered entry for a tenant.
func (db *DB) DeleteTenant(tenant string) error {
	if _, err := db.conn.Exec(`DELETE FROM rendered WHERE tenant = ?`, tenant); err != nil {
		return fmt.Errorf("siteindex: delete tenant: %w", err)
	}
	return nil
}

// All returns every rendered entry across tenants, newest first with title
// as the tie break, for the root aggregated listing.
func (db *DB) All() ([]models.RenderedNote, error) {
	rows, err := db.conn.Query(`
		SELECT path, url, title, summary, author, category, date, encrypted
		FROM rendered
		ORDER BY date DESC, title ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("siteindex: query all: %w", err)
	}
	defer rows.Close()

	var out []models.RenderedNote
	for rows.Next() {
		var n models.RenderedNote
		var date sql.NullTime
		if err := rows.Scan(&n.RelativePath, &n.URL, &n.Title, &n.Summary,
			&n.Author, &n.Category, &date, &n.Encrypted); err != nil {
			return nil, fmt.Errorf("siteindex: scan: %w", err)
		}
		if date.Valid {
			n.Date = date.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
