package web

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"crmmail/internal/application/orchestrators"
	"crmmail/internal/domain/schedule"
)

type scheduleJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TemplateID    string `json:"templateId"`
	Recipients    string `json:"recipients"`
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
	Status        string `json:"status"`
	TrackOpens    bool   `json:"trackOpens"`
	CreatedAt     string `json:"createdAt"`
	ClaimedAt     string `json:"claimedAt,omitempty"`
	SentAt        string `json:"sentAt,omitempty"`
	CampaignID    string `json:"campaignId,omitempty"`
	Error         string `json:"error,omitempty"`
}

func toScheduleJSON(s schedule.Schedule) scheduleJSON {
	return scheduleJSON{
		ID:            s.ID,
		Name:          s.Name,
		TemplateID:    s.TemplateID,
		Recipients:    s.Recipients,
		ScheduledDate: s.ScheduledDate,
		ScheduledTime: s.ScheduledTime,
		Status:        s.Status,
		TrackOpens:    s.TrackOpens,
		CreatedAt:     formatTime(s.CreatedAt),
		ClaimedAt:     formatTime(s.ClaimedAt),
		SentAt:        formatTime(s.SentAt),
		CampaignID:    s.CampaignID,
		Error:         s.Error,
	}
}

type scheduleRequest struct {
	Name          string `json:"name"`
	TemplateID    string `json:"templateId"`
	Recipients    string `json:"recipients"`
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
	TrackOpens    *bool  `json:"trackOpens"`
}

func isScheduleValidation(err error) bool {
	return errors.Is(err, schedule.ErrEmptyName) ||
		errors.Is(err, schedule.ErrEmptyTemplateID) ||
		errors.Is(err, schedule.ErrEmptyRecipients) ||
		errors.Is(err, schedule.ErrInvalidDate) ||
		errors.Is(err, schedule.ErrInvalidTime)
}

// Route: GET /api/schedules?status=
func (srv *server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := srv.stores.Schedules.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]scheduleJSON, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toScheduleJSON(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// Route: POST /api/schedules
func (srv *server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s, err := orchestrators.ExecuteCreateSchedule(r.Context(), orchestrators.CreateScheduleInput{
		Name:          req.Name,
		TemplateID:    req.TemplateID,
		Recipients:    req.Recipients,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
		TrackOpens:    req.TrackOpens,
	}, orchestrators.CreateScheduleDeps{
		Schedules:  srv.stores.Schedules,
		Now:        srv.opts.Now,
		GenerateID: srv.opts.GenerateID,
	})
	if isScheduleValidation(err) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleJSON(s))
}

// Route: GET /api/schedules/{id}
func (srv *server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := srv.stores.Schedules.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleJSON(s))
}

// handleDeleteSchedule cancels a schedule that has not started.
// Route: DELETE /api/schedules/{id}
func (srv *server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := srv.stores.Schedules.Delete(r.Context(), id)
	switch {
	case err == nil:
		slog.Info("schedule_deleted", "schedule_id", id)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "schedule not found", http.StatusNotFound)
	case errors.Is(err, schedule.ErrNotScheduled):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		internalError(w, err)
	}
}
