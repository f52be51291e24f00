package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crmmail/internal/adapters/metrics"
	"crmmail/internal/adapters/mq"
	outboxStore "crmmail/internal/adapters/storage/outbox"
	domain "crmmail/internal/domain/outbox"
)

// OutboxRelay publishes pending outbox entries to the broker with
// exponential backoff between attempts.
type OutboxRelay struct {
	store     outboxStore.Store
	publisher mq.Publisher
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// NewOutboxRelay creates a relay.
func NewOutboxRelay(store outboxStore.Store, publisher mq.Publisher) *OutboxRelay {
	return &OutboxRelay{
		store:     store,
		publisher: publisher,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 50,
		now:       time.Now,
	}
}

// ProcessPending publishes one batch of pending entries.
// PRE: Context is valid
// POST: Published entries are marked published; failures stay retrying until
// they run out of attempts
func (r *OutboxRelay) ProcessPending(ctx context.Context) error {
	entries, err := r.store.ListPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}

	for _, entry := range entries {
		if err := r.processEntry(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "topic", entry.Topic, "error", err.Error())
		}
	}
	return nil
}

// processEntry publishes a single entry once its backoff has elapsed.
func (r *OutboxRelay) processEntry(ctx context.Context, entry domain.Entry) error {
	now := r.now()
	if !entry.LastAttemptedAt.IsZero() {
		delay := entry.NextRetryDelay(r.baseDelay, r.maxDelay)
		if now.Sub(entry.LastAttemptedAt) < delay {
			return nil
		}
	}

	entry.MarkAttempt(now)
	err := r.publisher.Publish(ctx, mq.Message{
		ID:        entry.ID,
		Topic:     entry.Topic,
		Body:      []byte(entry.Payload),
		CreatedAt: entry.CreatedAt,
	})
	metrics.RecordOutboxPublish(entry.Topic, err)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_publish_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "error", err.Error())
	} else {
		entry.MarkPublished(now)
		slog.Debug("outbox_published", "entry_id", entry.ID, "topic", entry.Topic)
	}

	return r.store.Save(ctx, entry)
}

// ExecuteRequeueOutboxEntry puts a failed entry back in the relay's queue.
// PRE: id names an existing entry
// POST: The entry is pending again, or an error wrapping domain.ErrNotFailed
func ExecuteRequeueOutboxEntry(ctx context.Context, id string, store outboxStore.Store) error {
	entry, err := store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := entry.Requeue(); err != nil {
		return fmt.Errorf("requeue %s: %w", id, err)
	}
	if err := store.Save(ctx, entry); err != nil {
		return fmt.Errorf("save requeued entry: %w", err)
	}
	slog.Info("outbox_requeued", "entry_id", id, "topic", entry.Topic)
	return nil
}

// StartBackgroundWorker runs fn every interval until stopCh is closed. A
// panicking tick is logged and the worker keeps going.
// PRE: interval > 0
// POST: Worker goroutine started
func StartBackgroundWorker(name string, interval time.Duration, stopCh <-chan struct{}, fn func(ctx context.Context) error) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runTick(name, fn)
			case <-stopCh:
				slog.Info("background_worker_stopped", "worker", name)
				return
			}
		}
	}()
}

func runTick(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker_tick_failed", "worker", name, "panic", r)
		}
	}()
	if err := fn(ctx); err != nil {
		slog.Error("worker_tick_failed", "worker", name, "error", err.Error())
	}
}
