package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"crmmail/internal/application/orchestrators"
	"crmmail/internal/domain/delivery"
	"crmmail/internal/domain/engagement"
	"crmmail/internal/domain/recipient"
)

// maxWebhookBytes bounds one provider callback body.
const maxWebhookBytes = 1 << 20

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err)
	}
}

// failure is the {success:false, error} body of the dispatch endpoints.
func failure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// formatTime renders a timestamp for JSON, empty when unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// queryInt reads a positive integer query parameter bounded by max.
func queryInt(r *http.Request, key string, def, max int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

func (srv *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scheduleResultJSON is one entry of the cron response.
type scheduleResultJSON struct {
	ScheduleID string `json:"scheduleId"`
	Status     string `json:"status"`
	Recipients int    `json:"recipients,omitempty"`
	CampaignID string `json:"campaignId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// handleCronProcessEmails runs the due-detector for an external scheduler.
// Route: GET /api/cron/process-emails?token=...
func (srv *server) handleCronProcessEmails(w http.ResponseWriter, r *http.Request) {
	if err := orchestrators.VerifyCronToken(r.URL.Query().Get("token"), srv.opts.CronAuth); err != nil {
		slog.Warn("cron_unauthorized", "remote_addr", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	srv.processScheduled(w, r)
}

// handleProcessScheduled is the unauthenticated internal alias of the cron
// trigger. Only mounted when internal routes are exposed.
// Route: GET /api/email/process-scheduled
func (srv *server) handleProcessScheduled(w http.ResponseWriter, r *http.Request) {
	srv.processScheduled(w, r)
}

func (srv *server) processScheduled(w http.ResponseWriter, r *http.Request) {
	res, err := orchestrators.ExecuteProcessDueSchedules(r.Context(), srv.processDeps())
	if err != nil {
		slog.Error("process_schedules_failed", "error", err)
		failure(w, http.StatusInternalServerError, "Failed to process scheduled emails")
		return
	}

	results := make([]scheduleResultJSON, 0, len(res.Results))
	for _, sr := range res.Results {
		results = append(results, scheduleResultJSON{
			ScheduleID: sr.ScheduleID,
			Status:     sr.Status,
			Recipients: sr.Recipients,
			CampaignID: sr.CampaignID,
			Error:      sr.Error,
		})
	}
	body := map[string]any{
		"success":   true,
		"processed": len(results),
		"results":   results,
	}
	if len(results) == 0 {
		body["message"] = "No pending schedules"
	}
	writeJSON(w, http.StatusOK, body)
}

// sendEmailRequest is the on-demand send body. Recipients is either a
// selector string ("all", "a@x.com,b@y.com") or an array of addresses.
type sendEmailRequest struct {
	EmailData struct {
		Subject string `json:"subject"`
		HTML    string `json:"html"`
	} `json:"emailData"`
	TrackOpens *bool           `json:"trackOpens"`
	Recipients json.RawMessage `json:"recipients"`
}

// selector interprets the recipients field. A missing or unusable value is
// an empty explicit list, which resolves to NoRecipients.
func (req sendEmailRequest) selector() recipient.Selector {
	var list []string
	if err := json.Unmarshal(req.Recipients, &list); err == nil {
		return recipient.ExplicitSelector(list)
	}
	var raw string
	if err := json.Unmarshal(req.Recipients, &raw); err == nil {
		if sel, err := recipient.ParseSelector(raw); err == nil {
			return sel
		}
	}
	return recipient.ExplicitSelector(nil)
}

// handleSendEmail sends a campaign immediately.
// Route: POST /api/email/send
func (srv *server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := orchestrators.ExecuteSendCampaign(r.Context(), orchestrators.SendCampaignInput{
		Subject:    req.EmailData.Subject,
		HTML:       req.EmailData.HTML,
		TrackOpens: req.TrackOpens == nil || *req.TrackOpens,
		Selector:   req.selector(),
	}, orchestrators.SendCampaignDeps{
		Customers:  srv.stores.Customers,
		Campaigns:  srv.stores.Campaigns,
		Sender:     srv.opts.Sender,
		Events:     srv.stores.Outbox,
		Location:   srv.opts.Location,
		Now:        srv.opts.Now,
		GenerateID: srv.opts.GenerateID,
	})
	switch {
	case err == nil:
	case delivery.KindOf(err) == delivery.KindNoRecipients:
		failure(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, orchestrators.ErrEmptySubject):
		failure(w, http.StatusBadRequest, "Subject is required")
		return
	default:
		slog.Error("send_email_failed", "campaign_id", res.CampaignID, "kind", delivery.KindOf(err), "error", err)
		failure(w, http.StatusInternalServerError, "Failed to send email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Email sent to " + strconv.Itoa(res.Recipients) + " recipients",
		"campaignId": res.CampaignID,
	})
}

// handleMailjetWebhook ingests open/click callbacks. Individual event
// failures are logged, never reported back to the provider.
// Route: POST /api/mailjet-webhook
func (srv *server) handleMailjetWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		slog.Error("webhook_read_failed", "error", err)
		failure(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}
	events, err := engagement.ParseBatch(body)
	if err != nil {
		slog.Error("webhook_parse_failed", "error", err)
		failure(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	orchestrators.ExecuteIngestEngagement(r.Context(), orchestrators.IngestEngagementInput{Events: events},
		orchestrators.IngestEngagementDeps{Campaigns: srv.stores.Campaigns, Deduper: srv.opts.Deduper})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
