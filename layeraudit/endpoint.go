package layeraudit

import (
	"context"
	"time"

	"github.com/hazyhaar/renderaudit/kit"
)

// AuditRequest is the body of POST /api/audits and the arguments of the
// layeraudit_audit_page tool.
type AuditRequest struct {
	URL    string   `json:"url"`
	PageID string   `json:"page_id,omitempty"`
	Audits []string `json:"audits,omitempty"`
}

// auditEndpoint serves one AuditRequest on any transport.
func (a *Auditor) auditEndpoint() kit.Endpoint {
	return kit.Chain(a.logCalls)(func(ctx context.Context, req any) (any, error) {
		r := req.(*AuditRequest)
		return a.AuditPage(ctx, PageConfig{ID: r.PageID, URL: r.URL, Audits: r.Audits})
	})
}

func (a *Auditor) logCalls(next kit.Endpoint) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		log := a.logger.With(
			"transport", kit.GetTransport(ctx),
			"request_id", kit.GetRequestID(ctx),
			"duration", time.Since(start),
		)
		if err != nil {
			log.Warn("layeraudit: request failed", "error", err)
		} else {
			log.Debug("layeraudit: request served")
		}
		return resp, err
	}
}
