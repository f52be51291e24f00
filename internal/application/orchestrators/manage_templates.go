package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainTemplate "crmmail/internal/domain/template"
)

// TemplateWriter reads and saves templates.
type TemplateWriter interface {
	GetByID(ctx context.Context, id string) (domainTemplate.Template, error)
	Save(ctx context.Context, t domainTemplate.Template) error
}

// SaveTemplateInput carries editor fields. An empty ID creates a template.
type SaveTemplateInput struct {
	ID      string
	Name    string
	Subject string
	Content string
	Format  string
}

// SaveTemplateDeps holds dependencies for SaveTemplate.
type SaveTemplateDeps struct {
	Templates  TemplateWriter
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteSaveTemplate creates or updates a template.
// PRE: none
// POST: On update, CreatedAt and LastUsed are preserved; a missing ID
// returns the store's not-found error
func ExecuteSaveTemplate(ctx context.Context, in SaveTemplateInput, deps SaveTemplateDeps) (domainTemplate.Template, error) {
	now := deps.Now()
	t := domainTemplate.Template{
		ID:        deps.GenerateID(),
		CreatedAt: now,
	}
	if in.ID != "" {
		existing, err := deps.Templates.GetByID(ctx, in.ID)
		if err != nil {
			return domainTemplate.Template{}, err
		}
		t = existing
		t.UpdatedAt = now
	}
	t.Name = strings.TrimSpace(in.Name)
	t.Subject = strings.TrimSpace(in.Subject)
	t.Content = in.Content
	t.Format = strings.ToLower(strings.TrimSpace(in.Format))

	if err := t.Validate(); err != nil {
		return domainTemplate.Template{}, err
	}
	if err := deps.Templates.Save(ctx, t); err != nil {
		return domainTemplate.Template{}, err
	}
	slog.Info("template_saved", "template_id", t.ID, "format", t.Format, "created", in.ID == "")
	return t, nil
}
