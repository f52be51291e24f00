package email

import (
	"context"
	"log/slog"
	"time"

	"crmmail/internal/adapters/http/perf"
)

// TimedSender records the latency of every provider call on a perf collector.
type TimedSender struct {
	next      Sender
	name      string
	collector *perf.Collector
}

// NewTimedSender wraps next. name labels the entries, e.g. "mailjet".
// PRE: next is non-nil
// POST: Calls are forwarded unchanged; a nil collector only logs
func NewTimedSender(next Sender, name string, collector *perf.Collector) *TimedSender {
	return &TimedSender{next: next, name: name, collector: collector}
}

// Send forwards to the wrapped sender.
func (s *TimedSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	start := time.Now()
	res, err := s.next.Send(ctx, req)
	s.record("Send", start, err)
	return res, err
}

// SendBatch forwards to the wrapped sender.
func (s *TimedSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	start := time.Now()
	res, err := s.next.SendBatch(ctx, reqs)
	s.record("SendBatch", start, err)
	return res, err
}

func (s *TimedSender) record(op string, start time.Time, err error) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	failed := 0
	if err != nil {
		failed = 1
	}
	slog.Debug("provider_call", "provider", s.name, "op", op, "duration_ms", durationMs, "failed", err != nil)
	if s.collector != nil {
		s.collector.Record(perf.Entry{
			Kind:       perf.KindProvider,
			Path:       s.name + "." + op,
			StatusCode: failed,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}
