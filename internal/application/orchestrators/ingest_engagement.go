package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"crmmail/internal/adapters/metrics"
	"crmmail/internal/domain/campaign"
	"crmmail/internal/domain/engagement"
)

// Outcomes of one engagement event.
const (
	outcomeApplied         = "applied"
	outcomeIgnored         = "ignored"
	outcomeNoCustomID      = "no_custom_id"
	outcomeUnknownCampaign = "unknown_campaign"
	outcomeDuplicate       = "duplicate"
	outcomeError           = "error"
)

// IngestEngagementInput is one webhook delivery.
type IngestEngagementInput struct {
	Events []engagement.Event
}

// IngestEngagementDeps holds dependencies for IngestEngagement.
type IngestEngagementDeps struct {
	Campaigns CampaignCounter
	Deduper   Deduper // optional; nil counts every delivery
}

// IngestEngagementResult tallies what happened to each event.
type IngestEngagementResult struct {
	Applied    int
	Skipped    int
	Duplicates int
	Failed     int
}

// ExecuteIngestEngagement applies open and click events to campaign counters.
// Each event is handled independently; a failing event never blocks the rest.
// PRE: in.Events came from engagement.ParseBatch
// POST: Counters only ever increase; unknown campaigns are left untouched
func ExecuteIngestEngagement(ctx context.Context, in IngestEngagementInput, deps IngestEngagementDeps) IngestEngagementResult {
	var res IngestEngagementResult
	for _, ev := range in.Events {
		outcome := ingestEvent(ctx, ev, deps)
		metrics.RecordWebhookEvent(ev.Kind, outcome)
		switch outcome {
		case outcomeApplied:
			res.Applied++
		case outcomeDuplicate:
			res.Duplicates++
		case outcomeError:
			res.Failed++
		default:
			res.Skipped++
		}
	}
	slog.Info("webhook_processed", "events", len(in.Events), "applied", res.Applied,
		"skipped", res.Skipped, "duplicates", res.Duplicates, "failed", res.Failed)
	return res
}

func ingestEvent(ctx context.Context, ev engagement.Event, deps IngestEngagementDeps) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("webhook_event_panic", "custom_id", ev.CustomID, "event", ev.Kind, "panic", r)
			outcome = outcomeError
		}
	}()

	if ev.CustomID == "" {
		return outcomeNoCustomID
	}
	if !ev.IsTracked() {
		return outcomeIgnored
	}
	if deps.Deduper != nil && !deps.Deduper.FirstSeen(ctx, ev.DedupKey()) {
		return outcomeDuplicate
	}

	var err error
	switch ev.Kind {
	case engagement.KindOpen:
		err = deps.Campaigns.IncrementOpened(ctx, ev.CustomID)
	case engagement.KindClick:
		err = deps.Campaigns.IncrementClicked(ctx, ev.CustomID)
	}
	if errors.Is(err, campaign.ErrNotFound) {
		slog.Debug("webhook_unknown_campaign", "custom_id", ev.CustomID)
		return outcomeUnknownCampaign
	}
	if err != nil {
		slog.Error("webhook_event_failed", "custom_id", ev.CustomID, "event", ev.Kind, "error", err)
		return outcomeError
	}
	return outcomeApplied
}
