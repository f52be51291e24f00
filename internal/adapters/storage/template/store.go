package template

import (
	"context"

	domain "crmmail/internal/domain/template"
)

// Store persists email templates.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Template, error)
	Save(ctx context.Context, value domain.Template) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Template, error)
	MarkUsed(ctx context.Context, id, date string) error
}
