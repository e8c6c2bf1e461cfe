package layeraudit

import (
	"io"
	"log/slog"
	"time"

	"github.com/hazyhaar/renderaudit/layeraudit/internal/sink"
)

// Sink is the output interface for reports.
type Sink = sink.Sink

// ReportFunc receives each report in-process.
type ReportFunc = sink.ReportFunc

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn ReportFunc) Sink {
	return sink.NewCallback(fn)
}

// NewSQLiteSink creates a sink that keeps report history in the SQLite file
// at path. The HTTP API serves that history on GET /api/reports. Reports
// older than retention are deleted periodically; zero keeps them forever.
func NewSQLiteSink(path string, retention time.Duration, logger *slog.Logger) (Sink, error) {
	return sink.OpenStore(path, logger, sink.WithRetention(retention))
}

// SinksFromConfig builds the configured sinks. Unknown types and stores
// that fail to open are skipped with a warning; an empty result falls back to stdout.
func SinksFromConfig(cfgs []SinkConfig, logger *slog.Logger) []Sink {
	if logger == nil {
		logger = slog.Default()
	}
	var sinks []Sink
	for _, sc := range cfgs {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, NewStdoutSink(nil))
		case "webhook":
			sinks = append(sinks, NewWebhookSink(sc.URL, logger))
		case "sqlite":
			s, err := NewSQLiteSink(sc.Path, sc.Retention, logger)
			if err != nil {
				logger.Warn("layeraudit: sqlite sink disabled", "path", sc.Path, "error", err)
				continue
			}
			sinks = append(sinks, s)
		default:
			logger.Warn("layeraudit: unknown sink type", "type", sc.Type)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, NewStdoutSink(nil))
	}
	return sinks
}
