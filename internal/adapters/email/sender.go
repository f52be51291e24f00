package email

import (
	"context"
	"time"

	"crmmail/internal/domain/recipient"
)

// Default sender identity used when neither the request nor configuration
// provides one.
const (
	DefaultFromEmail = "noreply@example.com"
	DefaultFromName  = "CRM System"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Email string
	Name  string
}

// SendRequest is one provider-level message. All recipients in To receive
// the same message.
type SendRequest struct {
	To          []recipient.Recipient
	From        Address // zero value uses the sender's configured default
	Subject     string
	HTML        string
	Text        string
	CustomID    string // echoed back by the provider on engagement callbacks
	TrackOpens  bool
	TrackClicks bool
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageIDs []string // provider ids, one per recipient when reported
	SentAt     time.Time
}

// Sender is the interface for sending emails via an external provider.
// SendBatch is all-or-nothing at the transport level: an error means no
// message in the batch should be considered accepted.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}

// addresses flattens recipients into bare email addresses.
func addresses(to []recipient.Recipient) []string {
	out := make([]string, 0, len(to))
	for _, r := range to {
		out = append(out, r.Address)
	}
	return out
}
