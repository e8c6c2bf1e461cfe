// CLAUDE:SUMMARY Buffers reports and flushes them to the audit_reports SQLite table in batches; queryable history.
package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/renderaudit/dbopen"
	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// StoreSchema creates the report history table.
const StoreSchema = `
CREATE TABLE IF NOT EXISTS audit_reports (
    id            TEXT PRIMARY KEY,
    page_id       TEXT NOT NULL,
    page_url      TEXT NOT NULL,
    timestamp     INTEGER NOT NULL,
    layer_count   INTEGER,
    layer_defects INTEGER,
    report        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_page_time
    ON audit_reports(page_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_reports_time
    ON audit_reports(timestamp);
`

// Store persists reports to SQLite. Send only queues; reports are written
// when the buffer fills, on every flush interval, and on Close.
type Store struct {
	db            *sql.DB
	bufferSize    int
	flushInterval time.Duration
	retention     time.Duration
	logger        *slog.Logger

	mu     sync.Mutex
	buffer []artifact.Report
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	ownDB  bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetention deletes reports older than d after every periodic flush.
// Zero keeps reports forever.
func WithRetention(d time.Duration) StoreOption {
	return func(s *Store) { s.retention = d }
}

// OpenStore opens (or creates) the SQLite file at path and starts a Store
// on it. Close also closes the database.
func OpenStore(path string, logger *slog.Logger, opts ...StoreOption) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(StoreSchema))
	if err != nil {
		return nil, fmt.Errorf("sink: open store: %w", err)
	}
	s := NewStore(db, 0, 0, logger, opts...)
	s.ownDB = true
	return s, nil
}

// NewStore starts a Store on db, which must carry StoreSchema. Zero values
// default to a buffer of 20 reports and a 5s flush interval.
func NewStore(db *sql.DB, bufferSize int, flushInterval time.Duration, logger *slog.Logger, opts ...StoreOption) *Store {
	if bufferSize <= 0 {
		bufferSize = 20
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		db:            db,
		bufferSize:    bufferSize,
		flushInterval: flushInterval,
		logger:        logger,
		buffer:        make([]artifact.Report, 0, bufferSize),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.flushLoop()
	return s
}

func (s *Store) Send(_ context.Context, report artifact.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, report)
	if len(s.buffer) >= s.bufferSize {
		return s.flushLocked()
	}
	return nil
}

// Flush writes the queued reports now.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Close flushes the remaining reports and stops the flush loop. A database
// passed to NewStore is left open.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		if s.ownDB {
			err = s.db.Close()
		}
	})
	return err
}

// Query returns the most recent reports, newest first. An empty pageID
// matches every page; limit <= 0 means no limit.
func (s *Store) Query(ctx context.Context, pageID string, limit int) ([]artifact.Report, error) {
	q := "SELECT report FROM audit_reports WHERE 1=1"
	var args []any
	if pageID != "" {
		q += " AND page_id = ?"
		args = append(args, pageID)
	}
	q += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sink: query reports: %w", err)
	}
	defer rows.Close()

	out := make([]artifact.Report, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sink: scan report: %w", err)
		}
		var r artifact.Report
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("sink: decode report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Cleanup deletes reports older than retention and returns the count removed.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_reports WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("sink: cleanup reports: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			if err := s.Flush(); err != nil {
				s.logger.Error("sink: final report flush", "error", err)
			}
			return
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.logger.Error("sink: report flush", "error", err)
			}
			s.expire()
		}
	}
}

func (s *Store) expire() {
	if s.retention <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := s.Cleanup(ctx, s.retention)
	if err != nil {
		s.logger.Error("sink: report cleanup", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("sink: expired reports", "count", n, "retention", s.retention)
	}
}

// flushLocked writes the buffer in one transaction. On failure the buffer
// is kept for the next flush.
func (s *Store) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO audit_reports
				(id, page_id, page_url, timestamp, layer_count, layer_defects, report)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range s.buffer {
			raw, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode report %s: %w", r.ID, err)
			}
			var count, defects sql.NullInt64
			if r.IncorrectLayers != nil {
				count = sql.NullInt64{Int64: int64(r.IncorrectLayers.TotalCount), Valid: true}
				defects = sql.NullInt64{Int64: int64(r.IncorrectLayers.DefectCount), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				r.ID, r.PageID, r.PageURL, r.Timestamp, count, defects, string(raw),
			); err != nil {
				return fmt.Errorf("insert report %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sink: flush %d reports: %w", len(s.buffer), err)
	}
	s.buffer = s.buffer[:0]
	return nil
}
