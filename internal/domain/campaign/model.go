package campaign

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrNotFound      = errors.New("campaign not found")
	ErrEmptySubject  = errors.New("campaign subject is required")
	ErrNoRecipients  = errors.New("campaign must have at least one recipient")
	ErrInvalidSource = errors.New("campaign source must be 'manual' or 'schedule'")
)

// Source records which path created the campaign.
const (
	SourceManual   = "manual"
	SourceSchedule = "schedule"
)

// Campaign is the audit and tracking record of one dispatch attempt. Its
// existence means delivery was attempted, not that it succeeded.
// INVARIANT: Opened and Clicked never decrease
type Campaign struct {
	ID         string
	Name       string
	Subject    string
	Content    string
	Recipients string // comma-joined addresses
	Sent       int
	Opened     int
	Clicked    int
	Date       string // YYYY-MM-DD
	Source     string
	ScheduleID string
	CreatedAt  time.Time
}

// Draft carries what the dispatch paths know before the record exists.
type Draft struct {
	Subject    string
	Content    string
	Recipients []string
	Source     string
	ScheduleID string
}

// New builds a campaign from a draft with zeroed engagement counters.
// PRE: id is non-empty, date is YYYY-MM-DD
// POST: Name == Subject, Sent == len(Recipients), Opened == Clicked == 0
func New(id string, d Draft, date string, now time.Time) (Campaign, error) {
	if strings.TrimSpace(d.Subject) == "" {
		return Campaign{}, ErrEmptySubject
	}
	if len(d.Recipients) == 0 {
		return Campaign{}, ErrNoRecipients
	}
	source := d.Source
	if source == "" {
		source = SourceManual
	}
	if source != SourceManual && source != SourceSchedule {
		return Campaign{}, ErrInvalidSource
	}
	return Campaign{
		ID:         id,
		Name:       d.Subject,
		Subject:    d.Subject,
		Content:    d.Content,
		Recipients: strings.Join(d.Recipients, ", "),
		Sent:       len(d.Recipients),
		Date:       date,
		Source:     source,
		ScheduleID: d.ScheduleID,
		CreatedAt:  now,
	}, nil
}

// OpenRate returns opened/sent, or 0 when nothing was sent.
func (c *Campaign) OpenRate() float64 {
	if c.Sent == 0 {
		return 0
	}
	return float64(c.Opened) / float64(c.Sent)
}

// ClickRate returns clicked/sent, or 0 when nothing was sent.
func (c *Campaign) ClickRate() float64 {
	if c.Sent == 0 {
		return 0
	}
	return float64(c.Clicked) / float64(c.Sent)
}
