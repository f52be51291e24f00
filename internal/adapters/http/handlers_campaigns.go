package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	customerStore "crmmail/internal/adapters/storage/customer"
	"crmmail/internal/domain/campaign"
	"crmmail/internal/domain/customer"
)

type campaignJSON struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Subject    string  `json:"subject"`
	Content    string  `json:"content"`
	Recipients string  `json:"recipients"`
	Sent       int     `json:"sent"`
	Opened     int     `json:"opened"`
	Clicked    int     `json:"clicked"`
	OpenRate   float64 `json:"openRate"`
	ClickRate  float64 `json:"clickRate"`
	Date       string  `json:"date"`
	Source     string  `json:"source"`
	ScheduleID string  `json:"scheduleId,omitempty"`
	CreatedAt  string  `json:"createdAt"`
}

func toCampaignJSON(c campaign.Campaign) campaignJSON {
	return campaignJSON{
		ID:         c.ID,
		Name:       c.Name,
		Subject:    c.Subject,
		Content:    c.Content,
		Recipients: c.Recipients,
		Sent:       c.Sent,
		Opened:     c.Opened,
		Clicked:    c.Clicked,
		OpenRate:   c.OpenRate(),
		ClickRate:  c.ClickRate(),
		Date:       c.Date,
		Source:     c.Source,
		ScheduleID: c.ScheduleID,
		CreatedAt:  formatTime(c.CreatedAt),
	}
}

// Route: GET /api/campaigns?limit=
func (srv *server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := srv.stores.Campaigns.List(r.Context(), queryInt(r, "limit", 100, 500))
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]campaignJSON, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toCampaignJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// Route: GET /api/campaigns/{id}
func (srv *server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := srv.stores.Campaigns.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, campaign.ErrNotFound) {
		http.Error(w, "campaign not found", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignJSON(c))
}

type customerJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// handleListCustomers lists customers, optionally narrowed to one status.
// The status may be given as a value or as its display label.
// Route: GET /api/customers?status=&limit=&offset=
func (srv *server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" {
		status = customer.NormalizeStatus(status)
		if !customer.IsValidStatus(status) {
			http.Error(w, customer.ErrInvalidStatus.Error(), http.StatusBadRequest)
			return
		}
	}
	customers, err := srv.stores.Customers.List(r.Context(), customerStore.ListFilter{
		Status: status,
		Limit:  queryInt(r, "limit", 0, 1000),
		Offset: queryInt(r, "offset", 0, 1<<20),
	})
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]customerJSON, 0, len(customers))
	for _, c := range customers {
		out = append(out, customerJSON{
			ID:        c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Company:   c.Company,
			Status:    c.Status,
			CreatedAt: formatTime(c.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
