package customer

import (
	"context"

	domain "crmmail/internal/domain/customer"
)

// Store persists Customer state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Customer, error)
	Save(ctx context.Context, value domain.Customer) error
	List(ctx context.Context, filter ListFilter) ([]domain.Customer, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Status string
}
