// Package sink defines output backends for audit reports.
package sink

import (
	"context"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// Sink delivers reports to one backend (stdout, webhook, in-process callback).
type Sink interface {
	Send(ctx context.Context, report artifact.Report) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func reportEnvelope(r artifact.Report) envelope {
	return envelope{Type: "report", Data: r}
}
