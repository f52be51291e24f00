package campaign

import (
	"context"

	domain "crmmail/internal/domain/campaign"
)

// Store persists campaign audit records and their engagement counters.
type Store interface {
	Create(ctx context.Context, value domain.Campaign) error
	GetByID(ctx context.Context, id string) (domain.Campaign, error)
	List(ctx context.Context, limit int) ([]domain.Campaign, error)
	IncrementOpened(ctx context.Context, id string) error
	IncrementClicked(ctx context.Context, id string) error
}
