package orchestrators

import (
	"context"
	"log/slog"

	"crmmail/internal/adapters/email"
	"crmmail/internal/domain/delivery"
	"crmmail/internal/domain/recipient"
)

// DispatchInput is one campaign's delivery.
type DispatchInput struct {
	Recipients []recipient.Recipient
	Subject    string
	HTML       string
	TrackOpens bool
	CampaignID string
}

// DispatchDeps holds dependencies for Dispatch.
type DispatchDeps struct {
	Sender email.Sender
}

// DispatchResult describes how the recipients went out.
type DispatchResult struct {
	Mode   string
	Chunks []int // recipient count per provider message
}

// ExecuteDispatch hands the recipients to the provider: one Send for up to
// delivery.BatchThreshold recipients, otherwise one SendBatch of
// delivery.ChunkSize messages.
// PRE: in.CampaignID identifies the already-created audit record
// POST: Returns a ProviderError delivery.Error if the provider call failed
func ExecuteDispatch(ctx context.Context, in DispatchInput, deps DispatchDeps) (DispatchResult, error) {
	if len(in.Recipients) == 0 {
		return DispatchResult{}, delivery.NoRecipients()
	}

	message := func(to []recipient.Recipient) email.SendRequest {
		return email.SendRequest{
			To:          to,
			Subject:     in.Subject,
			HTML:        in.HTML,
			CustomID:    in.CampaignID,
			TrackOpens:  in.TrackOpens,
			TrackClicks: true,
		}
	}

	mode := delivery.ModeFor(len(in.Recipients))
	if mode == delivery.ModeSingle {
		if _, err := deps.Sender.Send(ctx, message(in.Recipients)); err != nil {
			return DispatchResult{Mode: mode}, delivery.Provider(err)
		}
		return DispatchResult{Mode: mode, Chunks: []int{len(in.Recipients)}}, nil
	}

	chunks := delivery.Chunk(in.Recipients, delivery.ChunkSize)
	reqs := make([]email.SendRequest, 0, len(chunks))
	sizes := make([]int, 0, len(chunks))
	for _, c := range chunks {
		reqs = append(reqs, message(c))
		sizes = append(sizes, len(c))
	}
	if _, err := deps.Sender.SendBatch(ctx, reqs); err != nil {
		return DispatchResult{Mode: mode, Chunks: sizes}, delivery.Provider(err)
	}
	slog.Info("campaign_batch_dispatched", "campaign_id", in.CampaignID, "chunks", len(sizes), "recipients", len(in.Recipients))
	return DispatchResult{Mode: mode, Chunks: sizes}, nil
}
