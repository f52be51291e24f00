package web

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"crmmail/internal/application/orchestrators"
	domainTemplate "crmmail/internal/domain/template"
)

type templateJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	Format    string `json:"format"`
	LastUsed  string `json:"lastUsed,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func toTemplateJSON(t domainTemplate.Template) templateJSON {
	return templateJSON{
		ID:        t.ID,
		Name:      t.Name,
		Subject:   t.Subject,
		Content:   t.Content,
		Format:    t.Format,
		LastUsed:  t.LastUsed,
		CreatedAt: formatTime(t.CreatedAt),
		UpdatedAt: formatTime(t.UpdatedAt),
	}
}

type templateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Content string `json:"content"`
	Format  string `json:"format"`
}

// isTemplateValidation reports whether err is a template field error.
func isTemplateValidation(err error) bool {
	return errors.Is(err, domainTemplate.ErrEmptyName) ||
		errors.Is(err, domainTemplate.ErrEmptySubject) ||
		errors.Is(err, domainTemplate.ErrEmptyContent) ||
		errors.Is(err, domainTemplate.ErrInvalidFormat)
}

// Route: GET /api/templates
func (srv *server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := srv.stores.Templates.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]templateJSON, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// Route: GET /api/templates/{id}
func (srv *server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := srv.stores.Templates.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateJSON(t))
}

// Route: POST /api/templates
func (srv *server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	srv.saveTemplate(w, r, "", http.StatusCreated)
}

// Route: PUT /api/templates/{id}
func (srv *server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	srv.saveTemplate(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (srv *server) saveTemplate(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req templateRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	t, err := orchestrators.ExecuteSaveTemplate(r.Context(), orchestrators.SaveTemplateInput{
		ID:      id,
		Name:    req.Name,
		Subject: req.Subject,
		Content: req.Content,
		Format:  req.Format,
	}, orchestrators.SaveTemplateDeps{
		Templates:  srv.stores.Templates,
		Now:        srv.opts.Now,
		GenerateID: srv.opts.GenerateID,
	})
	switch {
	case err == nil:
		writeJSON(w, status, toTemplateJSON(t))
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "template not found", http.StatusNotFound)
	case isTemplateValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		internalError(w, err)
	}
}

// Route: DELETE /api/templates/{id}
func (srv *server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	err := srv.stores.Templates.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
