package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"crmmail/internal/adapters/http/perf"
	"crmmail/internal/domain/recipient"
)

type failingSender struct{ *NoopSender }

func (failingSender) SendBatch(context.Context, []SendRequest) ([]SendResult, error) {
	return nil, errors.New("upstream 503")
}

func TestTimedSender_RecordsCalls(t *testing.T) {
	collector := perf.NewCollector(10)
	s := NewTimedSender(failingSender{NewNoopSender()}, "mailjet", collector)
	req := SendRequest{To: []recipient.Recipient{{Address: "a@example.com"}}, Subject: "s"}

	if _, err := s.Send(context.Background(), req); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := s.SendBatch(context.Background(), []SendRequest{req}); err == nil {
		t.Fatal("SendBatch should pass the error through")
	}

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestProviders) != 2 || snap.ProviderErrors != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}
