package orchestrators

import (
	"context"
	"log/slog"
	"time"

	customerStore "crmmail/internal/adapters/storage/customer"
	"crmmail/internal/domain/campaign"
	"crmmail/internal/domain/customer"
	domainOutbox "crmmail/internal/domain/outbox"
	"crmmail/internal/domain/schedule"
	domainTemplate "crmmail/internal/domain/template"
)

// CustomerLister reads customers for recipient resolution.
type CustomerLister interface {
	List(ctx context.Context, filter customerStore.ListFilter) ([]customer.Customer, error)
}

// TemplateReader loads templates for dispatch and stamps their last use.
type TemplateReader interface {
	GetByID(ctx context.Context, id string) (domainTemplate.Template, error)
	MarkUsed(ctx context.Context, id, date string) error
}

// CampaignCreator persists the audit record before delivery.
type CampaignCreator interface {
	Create(ctx context.Context, c campaign.Campaign) error
}

// CampaignCounter applies engagement events.
type CampaignCounter interface {
	IncrementOpened(ctx context.Context, id string) error
	IncrementClicked(ctx context.Context, id string) error
}

// ScheduleQueue is the part of the schedule store the due-detector drives.
type ScheduleQueue interface {
	ListDue(ctx context.Context, today, hhmm string) ([]schedule.Schedule, error)
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	Complete(ctx context.Context, s schedule.Schedule) error
}

// EventRecorder appends domain events to the outbox.
type EventRecorder interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// Deduper reports whether an engagement event key is seen for the first time.
type Deduper interface {
	FirstSeen(ctx context.Context, key string) bool
}

// recordEvent appends an outbox entry. Failures are logged and swallowed: the
// state change the event describes has already been committed.
func recordEvent(ctx context.Context, rec EventRecorder, generateID func() string, now time.Time, topic string, payload any) {
	if rec == nil {
		return
	}
	entry, err := domainOutbox.NewEntry(generateID(), topic, payload, now)
	if err != nil {
		slog.Error("outbox_entry_invalid", "topic", topic, "error", err)
		return
	}
	if err := rec.Save(ctx, entry); err != nil {
		slog.Error("outbox_record_failed", "topic", topic, "entry_id", entry.ID, "error", err)
	}
}

// today returns now's calendar date in loc.
func today(now time.Time, loc *time.Location) string {
	date, _ := schedule.Clock(now, loc)
	return date
}
