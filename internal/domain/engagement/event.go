package engagement

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Event kinds the ingestor acts on. Providers send others (sent, bounce,
// spam, unsub, blocked) which are ignored.
const (
	KindOpen  = "open"
	KindClick = "click"
)

// ErrEmptyBody is returned for a webhook request with no payload.
var ErrEmptyBody = errors.New("webhook body is empty")

// Event is one provider callback. Field names follow the Mailjet event API.
type Event struct {
	Kind        string `json:"event"`
	Time        int64  `json:"time"`
	MessageID   int64  `json:"MessageID"`
	MessageGUID string `json:"Message_GUID"`
	Email       string `json:"email"`
	CustomID    string `json:"CustomID"`
	URL         string `json:"url"`
}

// ParseBatch decodes a webhook body. Providers post either a JSON array of
// events or a single event object.
// PRE: body is the raw request payload
// POST: Returns the events in delivery order, or an error if the body is not JSON
func ParseBatch(body []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyBody
	}
	if trimmed[0] == '{' {
		var ev Event
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			return nil, fmt.Errorf("decode webhook event: %w", err)
		}
		return []Event{ev}, nil
	}
	var events []Event
	if err := json.Unmarshal(trimmed, &events); err != nil {
		return nil, fmt.Errorf("decode webhook events: %w", err)
	}
	return events, nil
}

// IsTracked reports whether the event changes a campaign counter.
func (e Event) IsTracked() bool {
	return e.Kind == KindOpen || e.Kind == KindClick
}

// DedupKey identifies a provider delivery of this event. Events without
// provider identity return "" and are never deduplicated.
func (e Event) DedupKey() string {
	if e.MessageID == 0 || e.Time == 0 {
		return ""
	}
	return fmt.Sprintf("webhook:%s:%d:%s:%d", e.CustomID, e.MessageID, e.Kind, e.Time)
}
