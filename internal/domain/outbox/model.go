package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Topics published by the dispatch pipeline.
const (
	TopicCampaignDispatched = "campaign.dispatched"
	TopicScheduleSent       = "schedule.sent"
	TopicScheduleFailed     = "schedule.failed"
)

// DefaultMaxAttempts bounds publish retries for one entry.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyTopic   = errors.New("topic is required")
	ErrEmptyPayload = errors.New("payload is required")
)

// Entry is a domain event waiting to be relayed to the message broker.
type Entry struct {
	ID              string
	Topic           string
	Payload         string // JSON
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	PublishedAt     time.Time
	ErrorMessage    string
}

// CampaignDispatched is the payload of TopicCampaignDispatched.
type CampaignDispatched struct {
	CampaignID string `json:"campaignId"`
	ScheduleID string `json:"scheduleId,omitempty"`
	Recipients int    `json:"recipients"`
	Mode       string `json:"mode"`
	Chunks     int    `json:"chunks"`
}

// ScheduleSent is the payload of TopicScheduleSent.
type ScheduleSent struct {
	ScheduleID string `json:"scheduleId"`
	CampaignID string `json:"campaignId"`
	Recipients int    `json:"recipients"`
}

// ScheduleFailed is the payload of TopicScheduleFailed.
type ScheduleFailed struct {
	ScheduleID string `json:"scheduleId"`
	Kind       string `json:"kind"`
	Error      string `json:"error"`
}

// NewEntry builds a pending entry with a JSON-encoded payload.
// PRE: id and topic are non-empty
// POST: Returns a pending entry with MaxAttempts set
func NewEntry(id, topic string, payload any, now time.Time) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	e := Entry{
		ID:          id,
		Topic:       topic,
		Payload:     string(raw),
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
	return e, e.Validate()
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.Topic == "" {
		return ErrEmptyTopic
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// IsTerminal returns true if the entry has reached a terminal state.
// PRE: Status field is set
// POST: Returns true for published or failed
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusPublished || e.Status == StatusFailed
}

// MarkAttempt records a publish attempt.
// PRE: Entry is not terminal
// POST: Attempts incremented, LastAttemptedAt updated, status set to retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkPublished marks the entry as delivered to the broker.
// PRE: Publish succeeded
// POST: Status set to published
func (e *Entry) MarkPublished(now time.Time) {
	e.Status = StatusPublished
	e.PublishedAt = now
	e.ErrorMessage = ""
}

// MarkFailed records a failed publish. The entry stays retrying until it runs
// out of attempts.
// PRE: Publish failed
// POST: ErrorMessage set; status failed once Attempts >= MaxAttempts
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// ErrNotFailed is returned when requeueing an entry that has not given up.
var ErrNotFailed = errors.New("outbox entry is not failed")

// Requeue gives a failed entry a fresh set of attempts.
// PRE: Status is failed
// POST: Status is pending, Attempts is 0; ErrorMessage keeps the last failure
func (e *Entry) Requeue() error {
	if e.Status != StatusFailed {
		return ErrNotFailed
	}
	e.Status = StatusPending
	e.Attempts = 0
	e.LastAttemptedAt = time.Time{}
	return nil
}

// NextRetryDelay calculates the delay before the next retry attempt.
// Uses exponential backoff: 2^attempts * baseDelay, capped at maxDelay.
// PRE: Attempts is set
// POST: Returns duration for next retry
func (e *Entry) NextRetryDelay(baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}
