// CLAUDE:SUMMARY Writes reports as JSON lines to an io.Writer (defaults to stdout).
package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// Stdout writes one {"type":"report","data":...} line per report.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, report artifact.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(reportEnvelope(report))
}

func (s *Stdout) Close() error { return nil }
