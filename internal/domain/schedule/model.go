package schedule

import (
	"errors"
	"strings"
	"time"
)

// Status constants for the schedule lifecycle. Processing is held only while a
// dispatch is in flight; sent and failed are terminal.
const (
	StatusScheduled  = "scheduled"
	StatusProcessing = "processing"
	StatusSent       = "sent"
	StatusFailed     = "failed"
)

// Layouts for the date and time fields. Both sort lexicographically.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Domain errors
var (
	ErrEmptyName       = errors.New("schedule name cannot be empty")
	ErrEmptyTemplateID = errors.New("template ID cannot be empty")
	ErrEmptyRecipients = errors.New("recipients cannot be empty")
	ErrInvalidDate     = errors.New("scheduled date must be YYYY-MM-DD")
	ErrInvalidTime     = errors.New("scheduled time must be HH:MM")
	ErrNotScheduled    = errors.New("schedule is not in scheduled status")
	ErrNotProcessing   = errors.New("schedule is not being processed")
	ErrAlreadyClaimed  = errors.New("schedule was claimed by another run")
)

// Schedule is a persisted intent to send a template to a recipient selector
// at a future date and time.
type Schedule struct {
	ID            string
	Name          string
	TemplateID    string
	Recipients    string // selector: all | active | inactive | comma-separated addresses
	ScheduledDate string // YYYY-MM-DD
	ScheduledTime string // HH:MM
	Status        string
	TrackOpens    bool
	CreatedAt     time.Time
	ClaimedAt     time.Time
	SentAt        time.Time
	CampaignID    string
	Error         string
}

// Validate checks if the Schedule has valid data.
// PRE: Schedule struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(s.TemplateID) == "" {
		return ErrEmptyTemplateID
	}
	if strings.TrimSpace(s.Recipients) == "" {
		return ErrEmptyRecipients
	}
	if _, err := time.Parse(DateLayout, s.ScheduledDate); err != nil {
		return ErrInvalidDate
	}
	if len(s.ScheduledTime) != len(TimeLayout) {
		return ErrInvalidTime
	}
	if _, err := time.Parse(TimeLayout, s.ScheduledTime); err != nil {
		return ErrInvalidTime
	}
	return nil
}

// Clock splits now into the date and zero-padded HH:MM strings used for due
// comparison, in the given location.
func Clock(now time.Time, loc *time.Location) (date, hhmm string) {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format(DateLayout), now.Format(TimeLayout)
}

// IsDue reports whether the schedule should be dispatched at (today, hhmm).
// INVARIANT: only scheduled schedules are ever due; earlier dates are due at any time
func (s *Schedule) IsDue(today, hhmm string) bool {
	if s.Status != StatusScheduled {
		return false
	}
	if s.ScheduledDate < today {
		return true
	}
	return s.ScheduledDate == today && s.ScheduledTime <= hhmm
}

// Claim moves a scheduled schedule into processing.
// PRE: Status is scheduled
// POST: Status is processing, ClaimedAt is now
func (s *Schedule) Claim(now time.Time) error {
	if s.Status != StatusScheduled {
		return ErrNotScheduled
	}
	s.Status = StatusProcessing
	s.ClaimedAt = now
	return nil
}

// MarkSent records a successful dispatch.
// PRE: Status is processing
// POST: Status is sent, SentAt is now, Error is empty
func (s *Schedule) MarkSent(now time.Time, campaignID string) error {
	if s.Status != StatusProcessing {
		return ErrNotProcessing
	}
	s.Status = StatusSent
	s.SentAt = now
	s.CampaignID = campaignID
	s.Error = ""
	return nil
}

// MarkFailed records a failed dispatch. A campaign id is kept when the audit
// record was created before the failure.
// PRE: Status is processing
// POST: Status is failed, Error is message, SentAt is zero
func (s *Schedule) MarkFailed(message, campaignID string) error {
	if s.Status != StatusProcessing {
		return ErrNotProcessing
	}
	s.Status = StatusFailed
	s.Error = message
	s.SentAt = time.Time{}
	s.CampaignID = campaignID
	return nil
}

// IsTerminal reports whether the schedule reached sent or failed.
func (s *Schedule) IsTerminal() bool {
	return s.Status == StatusSent || s.Status == StatusFailed
}
