package layeraudit

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/renderaudit/layeraudit/internal/config"
)

// ErrPageNotFound is returned when no audit_pages row has the given id.
var ErrPageNotFound = config.ErrPageNotFound

// PageRecord is the HTTP form of an audit_pages row.
type PageRecord struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Audits     []string `json:"audits,omitempty"`
	IntervalMS int64    `json:"interval_ms,omitempty"`
}

func pageRecord(p PageConfig) PageRecord {
	return PageRecord{ID: p.ID, URL: p.URL, Audits: p.Audits, IntervalMS: p.Interval.Milliseconds()}
}

// ManagePages serves the audit_pages table of db under /api/pages. With
// RunWatched on the same db, edits take effect on the next poll.
func (a *Auditor) ManagePages(db *sql.DB) {
	a.pages = db
}

// pageRoutes mounts:
//
//	GET    /api/pages
//	PUT    /api/pages/{id}  {"url": "...", "audits": [...], "interval_ms": 0}
//	DELETE /api/pages/{id}
func (a *Auditor) pageRoutes(r chi.Router) {
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.pages == nil {
				writeError(w, http.StatusNotImplemented, errors.New("no page database configured"))
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		pages, err := config.LoadPages(r.Context(), a.pages)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out := make([]PageRecord, len(pages))
		for i, p := range pages {
			out[i] = pageRecord(p)
		}
		writeJSON(w, http.StatusOK, map[string]any{"pages": out})
	})

	r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
		var rec PageRecord
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
			return
		}
		if rec.IntervalMS < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: negative interval_ms", ErrInvalidPage))
			return
		}
		pc := PageConfig{
			ID:       chi.URLParam(r, "id"),
			URL:      rec.URL,
			Audits:   rec.Audits,
			Interval: time.Duration(rec.IntervalMS) * time.Millisecond,
		}
		if err := pc.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidPage, err))
			return
		}
		if err := config.SavePage(r.Context(), a.pages, pc); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		a.logger.Info("layeraudit: page saved", "id", pc.ID, "url", pc.URL)
		writeJSON(w, http.StatusOK, pageRecord(pc))
	})

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := config.DisablePage(r.Context(), a.pages, id)
		switch {
		case errors.Is(err, ErrPageNotFound):
			writeError(w, http.StatusNotFound, err)
		case err != nil:
			writeError(w, http.StatusInternalServerError, err)
		default:
			a.logger.Info("layeraudit: page disabled", "id", id)
			w.WriteHeader(http.StatusNoContent)
		}
	})
}
