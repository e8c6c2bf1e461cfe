package layeraudit

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/hazyhaar/renderaudit/layeraudit/internal/config"
	"github.com/hazyhaar/renderaudit/watch"
)

// RunWatched audits the active pages of the audit_pages table and restarts
// the page loops with the new page set whenever the table changes. It
// blocks until ctx is done. Load errors are logged and retried on the next
// poll.
func (a *Auditor) RunWatched(ctx context.Context, db *sql.DB, poll time.Duration) error {
	var (
		mu      sync.Mutex
		stopRun context.CancelFunc
		runDone chan struct{}
	)
	halt := func() {
		if stopRun != nil {
			stopRun()
			<-runDone
		}
	}

	reload := func() error {
		pages, err := config.LoadPages(ctx, db)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		halt()

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		stopRun, runDone = cancel, done
		go func() {
			defer close(done)
			_ = a.RunPages(runCtx, pages)
		}()
		a.logger.Info("layeraudit: pages loaded", "count", len(pages))
		return nil
	}

	w := watch.New(db, watch.Options{
		Interval:    poll,
		Debounce:    poll,
		Detector:    config.PagesVersion,
		FireOnStart: true,
		Logger:      a.logger,
	})
	w.OnChange(ctx, reload)

	mu.Lock()
	halt()
	mu.Unlock()
	return ctx.Err()
}
