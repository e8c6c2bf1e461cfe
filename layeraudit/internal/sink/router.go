package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// Router fans a report out to every sink. A failing sink does not stop
// the others; failures are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Add appends a sink. Not safe to call concurrently with Send.
func (r *Router) Add(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Send(ctx context.Context, report artifact.Report) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, report); err != nil {
			r.logger.Warn("sink: send report failed", "report_id", report.ID, "page", report.PageID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
