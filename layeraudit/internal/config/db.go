// CLAUDE:SUMMARY Loads and stores audit_pages rows in SQLite.
package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/renderaudit/dbopen"
)

// ErrPageNotFound is returned for an id with no audit_pages row.
var ErrPageNotFound = errors.New("config: page not found")

// Schema for the audit_pages table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_pages (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	audits      TEXT DEFAULT '[]',
	interval_ms INTEGER DEFAULT 0,
	status      TEXT DEFAULT 'active',
	updated_at  INTEGER NOT NULL
);
`

// LoadPages reads all active pages, with defaults applied.
func LoadPages(ctx context.Context, db *sql.DB) ([]PageConfig, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, url, audits, interval_ms
		FROM audit_pages
		WHERE status = 'active'
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("config: load pages: %w", err)
	}
	defer rows.Close()

	var pages []PageConfig
	for rows.Next() {
		var p PageConfig
		var auditsJSON string
		var intervalMs int64
		if err := rows.Scan(&p.ID, &p.URL, &auditsJSON, &intervalMs); err != nil {
			return nil, fmt.Errorf("config: scan page: %w", err)
		}
		if err := json.Unmarshal([]byte(auditsJSON), &p.Audits); err != nil {
			return nil, fmt.Errorf("config: page %s: audits: %w", p.ID, err)
		}
		p.Interval = time.Duration(intervalMs) * time.Millisecond
		p.ApplyDefaults()
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// SavePage inserts or replaces a page and marks it active.
func SavePage(ctx context.Context, db *sql.DB, p PageConfig) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("config: save page: %w", err)
	}
	audits, err := json.Marshal(p.Audits)
	if err != nil {
		return err
	}
	if p.Audits == nil {
		audits = []byte("[]")
	}
	return dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audit_pages (id, url, audits, interval_ms, status, updated_at)
			VALUES (?, ?, ?, ?, 'active', ?)
			ON CONFLICT(id) DO UPDATE SET
				url = excluded.url,
				audits = excluded.audits,
				interval_ms = excluded.interval_ms,
				status = 'active',
				updated_at = excluded.updated_at
		`, p.ID, p.URL, string(audits), p.Interval.Milliseconds(), time.Now().UnixMilli())
		return err
	})
}

// DisablePage marks a page inactive. The row is kept so SavePage can
// reactivate it.
func DisablePage(ctx context.Context, db *sql.DB, id string) error {
	return dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE audit_pages SET status = 'disabled', updated_at = ? WHERE id = ?`,
			time.Now().UnixMilli(), id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", ErrPageNotFound, id)
		}
		return nil
	})
}

// PagesVersion is a change token for audit_pages: it moves on every insert,
// update, disable and delete.
func PagesVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var maxUpdated, count int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(updated_at), 0), COUNT(*) FROM audit_pages`,
	).Scan(&maxUpdated, &count)
	return maxUpdated*1000 + count%1000, err
}
