// Package watch polls an SQLite database for a change token and runs an
// action once the token has moved and stayed still for a debounce window.
//
//	w := watch.New(db, watch.Options{Interval: time.Second, Detector: config.PagesVersion})
//	go w.OnChange(ctx, reload)
package watch

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"
)

// ChangeDetector reads a version token. Two different tokens mean the
// watched data changed.
type ChangeDetector func(ctx context.Context, db *sql.DB) (int64, error)

// Options tunes a Watcher.
type Options struct {
	// Interval is the polling period. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period required after a change before the
	// action fires. 0 fires on the poll that saw the change.
	Debounce time.Duration
	// Detector defaults to PragmaDataVersion.
	Detector ChangeDetector
	// FireOnStart runs the action once right after the baseline is read.
	// If it fails, the next poll retries it.
	FireOnStart bool
	Logger      *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = PragmaDataVersion
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls one database.
type Watcher struct {
	db      *sql.DB
	opts    Options
	version atomic.Int64
}

// New creates a Watcher. OnChange starts it.
func New(db *sql.DB, opts Options) *Watcher {
	opts.defaults()
	return &Watcher{db: db, opts: opts}
}

// Version returns the last token whose action succeeded.
func (w *Watcher) Version() int64 { return w.version.Load() }

// OnChange blocks until ctx is done. The token read at start is the
// baseline; the action runs for each later settled change. A failed action
// leaves the version unchanged so the next poll retries it.
func (w *Watcher) OnChange(ctx context.Context, action func() error) {
	log := w.opts.Logger

	v, err := w.opts.Detector(ctx, w.db)
	switch {
	case err != nil:
		log.Warn("watch: initial version check failed", "error", err)
	case w.opts.FireOnStart:
		w.fire(action, v)
	default:
		w.version.Store(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var settle <-chan time.Time
	pending := w.version.Load()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			cur, err := w.opts.Detector(ctx, w.db)
			if err != nil {
				log.Warn("watch: version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() && settle == nil {
				continue
			}
			if w.opts.Debounce <= 0 {
				w.fire(action, cur)
				continue
			}
			if cur != pending || settle == nil {
				pending = cur
				settle = time.After(w.opts.Debounce)
				log.Debug("watch: change detected, debouncing", "pending_version", cur)
			}

		case <-settle:
			settle = nil
			w.fire(action, pending)
		}
	}
}

func (w *Watcher) fire(action func() error, ver int64) {
	log := w.opts.Logger
	start := time.Now()
	if err := action(); err != nil {
		log.Error("watch: reload failed", "version", ver, "error", err)
		return
	}
	w.version.Store(ver)
	log.Info("watch: reloaded", "version", ver, "duration", time.Since(start))
}

// PragmaDataVersion changes whenever another connection writes to the
// database file.
func PragmaDataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}
