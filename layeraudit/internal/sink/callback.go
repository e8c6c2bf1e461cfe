package sink

import (
	"context"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// ReportFunc receives each report in-process.
type ReportFunc func(ctx context.Context, report artifact.Report) error

// Callback hands reports to a Go function, without serialisation. Used
// when layeraudit is embedded in another binary.
type Callback struct {
	fn ReportFunc
}

// NewCallback creates a Callback sink. A nil fn drops reports.
func NewCallback(fn ReportFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, report artifact.Report) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, report)
}

func (c *Callback) Close() error { return nil }
