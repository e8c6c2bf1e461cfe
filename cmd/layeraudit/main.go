// CLAUDE:SUMMARY CLI entry point for layeraudit: single-URL, config, SQLite, HTTP and MCP modes.
// Command layeraudit audits the rendering of web pages.
//
// Usage:
//
//	layeraudit -url https://example.com          # audit once, report on stdout
//	layeraudit -config layeraudit.yaml           # audit configured pages (repeat on interval)
//	layeraudit -db pages.db                      # audit pages from the audit_pages table (hot reload)
//	layeraudit -config layeraudit.yaml -serve :8086
//	layeraudit -mcp                              # MCP tools over stdio
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/renderaudit/dbopen"
	"github.com/hazyhaar/renderaudit/layeraudit"
)

var version = "dev"

const pagesPoll = 2 * time.Second

type options struct {
	url, configPath, dbPath, serveAddr string
	mcp                                bool
}

func main() {
	var o options
	flag.StringVar(&o.url, "url", "", "audit a single URL once (stdout sink)")
	flag.StringVar(&o.configPath, "config", "", "path to layeraudit.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "SQLite database holding the audit_pages table")
	flag.StringVar(&o.serveAddr, "serve", "", "serve the HTTP API on this address (\"config\" = server.addr)")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools over stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("layeraudit: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	if o.url == "" && o.configPath == "" && o.dbPath == "" && o.serveAddr == "" && !o.mcp {
		fmt.Fprintln(os.Stderr, "usage: layeraudit -url <url> | -config <file> | -db <file> [-serve <addr>] | -mcp")
		os.Exit(2)
	}

	cfg := layeraudit.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = layeraudit.LoadConfigFile(o.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	var db *sql.DB
	if o.dbPath != "" {
		var err error
		if db, err = dbopen.Open(o.dbPath, dbopen.WithSchema(layeraudit.PagesSchema)); err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
	}

	// MCP over stdio owns stdout: reports only go back to the client.
	var sinks []layeraudit.Sink
	if !o.mcp {
		sinks = layeraudit.SinksFromConfig(cfg.Sinks, logger)
	}

	a := layeraudit.New(cfg, logger, sinks...)
	if db != nil {
		a.ManagePages(db)
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()

	switch {
	case o.mcp:
		srv := mcp.NewServer(&mcp.Implementation{Name: "layeraudit", Version: version}, nil)
		a.RegisterMCP(srv)
		return srv.Run(ctx, &mcp.StdioTransport{})

	case o.url != "":
		_, err := a.AuditPage(ctx, layeraudit.PageConfig{URL: o.url})
		return err

	case o.serveAddr != "":
		addr := o.serveAddr
		if addr == "config" {
			addr = cfg.Server.Addr
		}
		go func() {
			if err := runPages(ctx, a, db); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("layeraudit: page loop stopped", "error", err)
			}
		}()
		return a.Serve(ctx, addr)

	default:
		err := runPages(ctx, a, db)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// runPages runs the configured pages and, with a database, the audit_pages
// table reloaded on change.
func runPages(ctx context.Context, a *layeraudit.Auditor, db *sql.DB) error {
	if db == nil {
		return a.Run(ctx)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(ctx) })
	g.Go(func() error { return a.RunWatched(ctx, db, pagesPoll) })
	return g.Wait()
}
