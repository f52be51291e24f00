package web

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"crmmail/internal/application/orchestrators"
	"crmmail/internal/domain/outbox"
)

type outboxJSON struct {
	ID              string `json:"id"`
	Topic           string `json:"topic"`
	Payload         string `json:"payload"`
	Status          string `json:"status"`
	Attempts        int    `json:"attempts"`
	MaxAttempts     int    `json:"maxAttempts"`
	LastAttemptedAt string `json:"lastAttemptedAt,omitempty"`
	CreatedAt       string `json:"createdAt"`
	PublishedAt     string `json:"publishedAt,omitempty"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
}

// handleListOutbox lists relay entries. Without a topic it shows what is
// still waiting to be published.
// Route: GET /api/outbox?topic=&status=&limit=
func (srv *server) handleListOutbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := queryInt(r, "limit", 50, 100)

	var entries []outbox.Entry
	var err error
	if topic := q.Get("topic"); topic != "" {
		entries, err = srv.stores.Outbox.ListByTopic(r.Context(), topic, q.Get("status"), limit)
	} else {
		entries, err = srv.stores.Outbox.ListPending(r.Context(), limit)
	}
	if err != nil {
		internalError(w, err)
		return
	}

	out := make([]outboxJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, outboxJSON{
			ID:              e.ID,
			Topic:           e.Topic,
			Payload:         e.Payload,
			Status:          e.Status,
			Attempts:        e.Attempts,
			MaxAttempts:     e.MaxAttempts,
			LastAttemptedAt: formatTime(e.LastAttemptedAt),
			CreatedAt:       formatTime(e.CreatedAt),
			PublishedAt:     formatTime(e.PublishedAt),
			ErrorMessage:    e.ErrorMessage,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Route: POST /api/outbox/{id}/retry
func (srv *server) handleRequeueOutbox(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteRequeueOutboxEntry(r.Context(), chi.URLParam(r, "id"), srv.stores.Outbox)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "retry triggered"})
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "outbox entry not found", http.StatusNotFound)
	case errors.Is(err, outbox.ErrNotFailed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		internalError(w, err)
	}
}

// handlePerf returns request, query and provider timings.
// Route: GET /api/perf?minutes=15
func (srv *server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if srv.opts.Collector == nil {
		http.Error(w, "perf collection disabled", http.StatusNotFound)
		return
	}
	minutes := queryInt(r, "minutes", 15, 24*60)
	since := srv.opts.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, srv.opts.Collector.Snapshot(since, 10))
}

// handleStaleClaims lists schedules stuck in processing, for example after a
// crash between dispatch and completion. It never changes them: the provider
// may already have delivered.
// Route: GET /api/stale-claims?minutes=30
func (srv *server) handleStaleClaims(w http.ResponseWriter, r *http.Request) {
	minutes := queryInt(r, "minutes", 30, 7*24*60)
	before := srv.opts.Now().Add(-time.Duration(minutes) * time.Minute)
	stale, err := srv.stores.Schedules.ListStale(r.Context(), before)
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]scheduleJSON, 0, len(stale))
	for _, s := range stale {
		out = append(out, toScheduleJSON(s))
	}
	writeJSON(w, http.StatusOK, out)
}
