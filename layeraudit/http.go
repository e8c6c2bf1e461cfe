package layeraudit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/renderaudit/idgen"
	"github.com/hazyhaar/renderaudit/kit"
)

const (
	// maxRequestBody caps POST bodies.
	maxRequestBody = 64 << 10

	defaultReportLimit = 50
	maxReportLimit     = 1000
)

var newRequestID = idgen.Prefixed("req_", idgen.UUIDv7())

// Handler returns the HTTP API:
//
//	GET  /health
//	POST /api/audits   {"url": "...", "page_id": "...", "audits": [...]}
//	GET  /api/reports  ?page_id=...&limit=...  (needs a sqlite sink)
//	     /api/pages     see pageRoutes (needs ManagePages)
func (a *Auditor) Handler() http.Handler {
	endpoint := a.auditEndpoint()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(requestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/audits", func(w http.ResponseWriter, r *http.Request) {
		var req AuditRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
			return
		}
		resp, err := endpoint(kit.WithTransport(r.Context(), "http"), &req)
		switch {
		case errors.Is(err, ErrInvalidPage):
			writeError(w, http.StatusBadRequest, err)
		case err != nil:
			writeError(w, http.StatusBadGateway, err)
		default:
			writeJSON(w, http.StatusOK, resp)
		}
	})

	r.Get("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		if a.history == nil {
			writeError(w, http.StatusNotImplemented, errors.New("no report store configured"))
			return
		}
		limit := defaultReportLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
				return
			}
			limit = min(n, maxReportLimit)
		}
		reports, err := a.history.Query(r.Context(), r.URL.Query().Get("page_id"), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
	})

	r.Route("/api/pages", a.pageRoutes)

	return r
}

// Serve runs the HTTP API on addr until ctx is done.
func (a *Auditor) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.logger.Info("layeraudit: http listening", "addr", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("layeraudit: http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// securityHeaders sets the response headers of a JSON-only API.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Caller ids are kept only when they are (prefixed) UUIDs.
		id, err := idgen.Parse(r.Header.Get("X-Request-ID"))
		if err != nil {
			id = newRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), id)))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
