package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// campaignTag is the Resend tag carrying SendRequest.CustomID.
const campaignTag = "campaign_id"

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   Address
}

// NewResendSender creates a new ResendSender with the given API key and default from address.
// PRE: apiKey is a valid Resend API key
// POST: Returns a ready-to-use sender
func NewResendSender(apiKey string, from Address) *ResendSender {
	return newResendSender(resend.NewClient(apiKey), from)
}

func newResendSender(client *resend.Client, from Address) *ResendSender {
	if from.Email == "" {
		from.Email = DefaultFromEmail
	}
	if from.Name == "" {
		from.Name = DefaultFromName
	}
	return &ResendSender{
		client: client,
		from:   from,
	}
}

func (s *ResendSender) params(req SendRequest) *resend.SendEmailRequest {
	from := s.from
	if req.From.Email != "" {
		from = req.From
	}
	p := &resend.SendEmailRequest{
		From:    formatAddress(from),
		To:      addresses(req.To),
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
	}
	if req.CustomID != "" {
		p.Tags = []resend.Tag{{Name: campaignTag, Value: req.CustomID}}
	}
	return p
}

// Send sends a single email via Resend. Open and click tracking are
// configured per domain in Resend, so the tracking flags are not sent.
// PRE: req has at least one recipient and a subject
// POST: Email is queued for delivery; returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(req))
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "to", len(req.To), "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "to", len(req.To), "custom_id", req.CustomID)
	return SendResult{
		MessageIDs: []string{sent.Id},
		SentAt:     time.Now(),
	}, nil
}

// SendBatch sends multiple emails via Resend's batch API in one call.
// PRE: 0 < len(reqs) <= 100
// POST: All emails are queued; returns results in the same order as requests
func (s *ResendSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	batchParams := make([]*resend.SendEmailRequest, 0, len(reqs))
	for _, req := range reqs {
		batchParams = append(batchParams, s.params(req))
	}

	resp, err := s.client.Batch.SendWithContext(ctx, batchParams)
	if err != nil {
		slog.Error("resend_batch_failed", "error", err, "batch_size", len(reqs))
		return nil, fmt.Errorf("resend batch send failed: %w", err)
	}

	now := time.Now()
	results := make([]SendResult, 0, len(resp.Data))
	for _, item := range resp.Data {
		results = append(results, SendResult{MessageIDs: []string{item.Id}, SentAt: now})
	}
	slog.Info("resend_batch_sent", "count", len(reqs))
	return results, nil
}

func formatAddress(a Address) string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}
