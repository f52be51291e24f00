package schedule

import (
	"context"
	"time"

	domain "crmmail/internal/domain/schedule"
)

// Store persists Schedule state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Schedule, error)
	Create(ctx context.Context, value domain.Schedule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, status string) ([]domain.Schedule, error)
	ListDue(ctx context.Context, today, hhmm string) ([]domain.Schedule, error)
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	Complete(ctx context.Context, value domain.Schedule) error
	ListStale(ctx context.Context, claimedBefore time.Time) ([]domain.Schedule, error)
}
