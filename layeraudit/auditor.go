// CLAUDE:SUMMARY Orchestrates page audits: opens a tab, runs the layer, link-in-head and invisible-image passes, and emits a Report to sinks.
// Package layeraudit audits the rendering cost of web pages through the
// Chrome DevTools Protocol. For each page it captures the compositing layer
// tree and flags overlapping, oversized and frequently repainted layers,
// lists the <head> links that block first paint, and finds large images
// rendered off-screen.
//
// layeraudit reports, it does not fix. One Report per page visit is
// emitted to sinks (stdout, webhook, callback, SQLite history) and returned to the caller.
package layeraudit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/renderaudit/idgen"
	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
	"github.com/hazyhaar/renderaudit/layeraudit/internal/browser"
	"github.com/hazyhaar/renderaudit/layeraudit/internal/classifier"
	"github.com/hazyhaar/renderaudit/layeraudit/internal/collector"
	"github.com/hazyhaar/renderaudit/layeraudit/internal/config"
	"github.com/hazyhaar/renderaudit/layeraudit/internal/linkhead"
	"github.com/hazyhaar/renderaudit/layeraudit/internal/offscreen"
	"github.com/hazyhaar/renderaudit/layeraudit/internal/sink"
)

// ErrInvalidPage is returned by AuditPage for a page config that fails
// validation.
var ErrInvalidPage = errors.New("layeraudit: invalid page")

// Page is an open, navigated tab as the audits see it.
type Page interface {
	collector.Protocol
	EvalString(ctx context.Context, script string) (string, error)
	NetworkRecords() []artifact.NetworkRecord
	Close() error
}

// Opener opens pages. The default Opener drives a local or remote Chrome.
type Opener interface {
	Start(ctx context.Context) error
	Open(ctx context.Context, url, pageID string) (Page, error)
	Close() error
}

// Auditor is the top-level orchestrator. It owns the browser and the sinks.
type Auditor struct {
	cfg     *config.Config
	opener  Opener
	layers  *collector.Collector
	sinkR   *sink.Router
	history ReportHistory
	pages   *sql.DB
	newID   idgen.Generator
	now     func() time.Time
	logger  *slog.Logger
}

// ReportHistory is a sink that can list the reports it stored, newest
// first. The first such sink given to the Auditor backs GET /api/reports.
type ReportHistory interface {
	Query(ctx context.Context, pageID string, limit int) ([]artifact.Report, error)
}

// New creates an Auditor driving Chrome as configured in cfg.Browser.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          browser.ParseStealth(cfg.Browser.Stealth),
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		Logger:           logger,
	})
	return NewWithOpener(cfg, &chromeOpener{mgr: mgr}, logger, sinks...)
}

// NewWithOpener creates an Auditor over a custom page source.
func NewWithOpener(cfg *Config, opener Opener, logger *slog.Logger, sinks ...Sink) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Auditor{
		cfg:    cfg,
		opener: opener,
		layers: collector.New(collector.Config{
			TreeTimeout: cfg.Collector.TreeTimeout,
			Concurrency: cfg.Collector.Concurrency,
			Logger:      logger,
		}),
		sinkR:  sink.NewRouter(logger, sinks...),
		newID:  idgen.Default,
		now:    time.Now,
		logger: logger,
	}
	for _, s := range sinks {
		if h, ok := s.(ReportHistory); ok {
			a.history = h
			break
		}
	}
	return a
}

// Start launches the browser.
func (a *Auditor) Start(ctx context.Context) error {
	if err := a.opener.Start(ctx); err != nil {
		return fmt.Errorf("layeraudit: start browser: %w", err)
	}
	return nil
}

// AuditPage opens the page, runs the selected audits in a fixed order,
// sends the report to the sinks and returns it. A sink failure is logged,
// not returned.
func (a *Auditor) AuditPage(ctx context.Context, pc PageConfig) (*artifact.Report, error) {
	pc.ApplyDefaults()
	if err := pc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}

	start := a.now()
	page, err := a.opener.Open(ctx, pc.URL, pc.ID)
	if err != nil {
		return nil, fmt.Errorf("layeraudit: open %s: %w", pc.URL, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			a.logger.Debug("layeraudit: close page", "url", pc.URL, "error", err)
		}
	}()

	report := a.run(ctx, page, pc)
	report.ID = a.newID()
	report.PageURL = pc.URL
	report.PageID = pc.ID
	report.Timestamp = start.UnixMilli()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("layeraudit: audit %s: %w", pc.URL, err)
	}

	if err := a.sinkR.Send(ctx, report); err != nil {
		a.logger.Error("layeraudit: deliver report", "report_id", report.ID, "error", err)
	}

	a.logger.Info("layeraudit: page audited",
		"url", pc.URL, "id", pc.ID, "report_id", report.ID,
		"duration", a.now().Sub(start))
	return &report, nil
}

// run gathers every selected artifact first, then audits them.
func (a *Auditor) run(ctx context.Context, page Page, pc PageConfig) artifact.Report {
	var (
		layers *artifact.Layers
		links  *artifact.LinkInHead
		images *artifact.OffscreenImages
	)
	if pc.Runs(config.AuditLayers) {
		art := a.layers.Gather(ctx, page)
		layers = &art
	}
	if pc.Runs(config.AuditLinkInHead) {
		art := linkhead.Gather(ctx, page, page.NetworkRecords())
		links = &art
	}
	if pc.Runs(config.AuditInvisibleImages) {
		art := offscreen.Gather(ctx, page, page.NetworkRecords())
		images = &art
	}

	var report artifact.Report
	if layers != nil {
		res := classifier.Audit(*layers)
		report.IncorrectLayers = &res
	}
	if links != nil {
		res := linkhead.Audit(links)
		report.BlockFirstPaint = &res
	}
	if images != nil {
		res := offscreen.Audit(images)
		report.InvisibleImages = &res
	}
	return report
}

// Run audits every configured page once, then repeats the pages with an
// interval until ctx is done. It returns after the first pass when no page
// repeats.
func (a *Auditor) Run(ctx context.Context) error {
	return a.RunPages(ctx, a.cfg.Pages)
}

// RunPages is Run over an explicit page list.
func (a *Auditor) RunPages(ctx context.Context, pages []PageConfig) error {
	var g errgroup.Group
	for _, pc := range pages {
		g.Go(func() error {
			a.auditLoop(ctx, pc)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (a *Auditor) auditLoop(ctx context.Context, pc PageConfig) {
	for {
		if _, err := a.AuditPage(ctx, pc); err != nil && ctx.Err() == nil {
			a.logger.Error("layeraudit: audit failed", "url", pc.URL, "id", pc.ID, "error", err)
		}
		if pc.Interval <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pc.Interval):
		}
	}
}

// Stop closes the sinks and the browser.
func (a *Auditor) Stop() {
	if err := a.sinkR.Close(); err != nil {
		a.logger.Warn("layeraudit: close sinks", "error", err)
	}
	if err := a.opener.Close(); err != nil {
		a.logger.Warn("layeraudit: close browser", "error", err)
	}
}

// chromeOpener opens stealth tabs on the managed Chrome instance.
type chromeOpener struct {
	mgr *browser.Manager
}

func (o *chromeOpener) Start(ctx context.Context) error { return o.mgr.Start(ctx) }

func (o *chromeOpener) Open(ctx context.Context, url, pageID string) (Page, error) {
	tab, err := browser.OpenTab(ctx, o.mgr, url, pageID)
	if err != nil {
		return nil, err
	}
	return tab, nil
}

func (o *chromeOpener) Close() error { return o.mgr.Close() }
