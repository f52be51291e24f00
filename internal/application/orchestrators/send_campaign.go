package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"crmmail/internal/adapters/email"
	"crmmail/internal/adapters/metrics"
	"crmmail/internal/domain/campaign"
	"crmmail/internal/domain/delivery"
	domainOutbox "crmmail/internal/domain/outbox"
	"crmmail/internal/domain/recipient"
)

// ErrEmptySubject is returned when an on-demand send has no subject.
var ErrEmptySubject = errors.New("subject is required")

// SendCampaignInput is an on-demand send from the UI.
type SendCampaignInput struct {
	Subject    string
	HTML       string
	TrackOpens bool
	Selector   recipient.Selector
}

// SendCampaignDeps holds dependencies for SendCampaign.
type SendCampaignDeps struct {
	Customers  CustomerLister
	Campaigns  CampaignCreator
	Sender     email.Sender
	Events     EventRecorder // optional
	Location   *time.Location
	Now        func() time.Time
	GenerateID func() string
}

// SendCampaignResult reports the created campaign.
type SendCampaignResult struct {
	CampaignID string
	Recipients int
	Mode       string
}

// ExecuteSendCampaign resolves recipients, records the campaign and
// dispatches immediately. The schedule state machine is not involved.
// PRE: deps are wired
// POST: A campaign row exists whenever dispatch was attempted; it is not
// removed if the provider call fails
func ExecuteSendCampaign(ctx context.Context, in SendCampaignInput, deps SendCampaignDeps) (SendCampaignResult, error) {
	recipients, err := ExecuteResolveRecipients(ctx, ResolveRecipientsInput{Selector: in.Selector},
		ResolveRecipientsDeps{Customers: deps.Customers})
	if err != nil {
		return SendCampaignResult{}, err
	}
	if strings.TrimSpace(in.Subject) == "" {
		return SendCampaignResult{}, ErrEmptySubject
	}

	res, err := deliverCampaign(ctx, campaignDelivery{
		Draft: campaign.Draft{
			Subject:    in.Subject,
			Content:    in.HTML,
			Recipients: recipient.Addresses(recipients),
			Source:     campaign.SourceManual,
		},
		Recipients: recipients,
		TrackOpens: in.TrackOpens,
	}, deliveryDeps{
		Campaigns:  deps.Campaigns,
		Sender:     deps.Sender,
		Events:     deps.Events,
		Location:   deps.Location,
		Now:        deps.Now,
		GenerateID: deps.GenerateID,
	})
	if err != nil {
		return SendCampaignResult{CampaignID: res.CampaignID}, err
	}
	slog.Info("campaign_sent", "campaign_id", res.CampaignID, "recipients", len(recipients), "mode", res.Mode)
	return SendCampaignResult{CampaignID: res.CampaignID, Recipients: len(recipients), Mode: res.Mode}, nil
}

// campaignDelivery is the shared tail of both dispatch paths.
type campaignDelivery struct {
	Draft      campaign.Draft
	Recipients []recipient.Recipient
	TrackOpens bool
}

type deliveryDeps struct {
	Campaigns  CampaignCreator
	Sender     email.Sender
	Events     EventRecorder
	Location   *time.Location
	Now        func() time.Time
	GenerateID func() string
}

type deliveryResult struct {
	CampaignID string
	Mode       string
}

// deliverCampaign creates the audit record and then dispatches. The returned
// CampaignID is set as soon as the record exists, even on dispatch failure.
func deliverCampaign(ctx context.Context, d campaignDelivery, deps deliveryDeps) (deliveryResult, error) {
	now := deps.Now()
	c, err := campaign.New(deps.GenerateID(), d.Draft, today(now, deps.Location), now)
	if err != nil {
		return deliveryResult{}, delivery.Store(err)
	}
	if err := deps.Campaigns.Create(ctx, c); err != nil {
		return deliveryResult{}, delivery.Store(err)
	}

	dispatched, err := ExecuteDispatch(ctx, DispatchInput{
		Recipients: d.Recipients,
		Subject:    c.Subject,
		HTML:       c.Content,
		TrackOpens: d.TrackOpens,
		CampaignID: c.ID,
	}, DispatchDeps{Sender: deps.Sender})
	metrics.RecordDispatch(c.Source, dispatched.Mode, len(d.Recipients), err)
	if err != nil {
		slog.Error("campaign_dispatch_failed", "campaign_id", c.ID, "source", c.Source, "error", err)
		return deliveryResult{CampaignID: c.ID, Mode: dispatched.Mode}, err
	}

	recordEvent(ctx, deps.Events, deps.GenerateID, now, domainOutbox.TopicCampaignDispatched, domainOutbox.CampaignDispatched{
		CampaignID: c.ID,
		ScheduleID: c.ScheduleID,
		Recipients: len(d.Recipients),
		Mode:       dispatched.Mode,
		Chunks:     len(dispatched.Chunks),
	})
	return deliveryResult{CampaignID: c.ID, Mode: dispatched.Mode}, nil
}
