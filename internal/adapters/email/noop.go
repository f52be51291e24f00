package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender is a no-op email sender for development and testing.
// It logs sends but does not actually deliver emails.
type NoopSender struct{}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the email but does not deliver it.
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	slog.Info("noop_email_send", "to", len(req.To), "subject", req.Subject, "custom_id", req.CustomID)
	return SendResult{
		MessageIDs: []string{fmt.Sprintf("noop-%d", time.Now().UnixNano())},
		SentAt:     time.Now(),
	}, nil
}

// SendBatch logs the batch but does not deliver.
func (s *NoopSender) SendBatch(_ context.Context, reqs []SendRequest) ([]SendResult, error) {
	results := make([]SendResult, 0, len(reqs))
	for i, req := range reqs {
		slog.Info("noop_email_batch", "index", i, "to", len(req.To), "subject", req.Subject)
		results = append(results, SendResult{
			MessageIDs: []string{fmt.Sprintf("noop-batch-%d-%d", time.Now().UnixNano(), i)},
			SentAt:     time.Now(),
		})
	}
	return results, nil
}
