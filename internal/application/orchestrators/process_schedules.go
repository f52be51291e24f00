package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crmmail/internal/adapters/email"
	"crmmail/internal/adapters/metrics"
	"crmmail/internal/domain/campaign"
	"crmmail/internal/domain/delivery"
	domainOutbox "crmmail/internal/domain/outbox"
	"crmmail/internal/domain/recipient"
	"crmmail/internal/domain/schedule"
)

// ProcessSchedulesDeps holds dependencies for the due-detector and the
// per-schedule pipeline.
type ProcessSchedulesDeps struct {
	Schedules  ScheduleQueue
	Templates  TemplateReader
	Customers  CustomerLister
	Campaigns  CampaignCreator
	Sender     email.Sender
	Events     EventRecorder // optional
	Location   *time.Location
	Now        func() time.Time
	GenerateID func() string
}

// StatusNotClaimed reports a schedule the run could not claim because the
// store failed. The row is still scheduled and the next run retries it.
const StatusNotClaimed = "error"

// ScheduleResult is the per-schedule outcome surfaced by the cron trigger.
type ScheduleResult struct {
	ScheduleID string
	Status     string
	Recipients int
	CampaignID string
	Error      string
}

// FindDueSchedulesInput carries the evaluation instant.
type FindDueSchedulesInput struct {
	Now time.Time
}

// ExecuteFindDueSchedules returns every scheduled schedule whose date and
// time are at or before now, in date/time order.
// PRE: in.Now is set
// POST: No returned schedule has a status other than scheduled
func ExecuteFindDueSchedules(ctx context.Context, in FindDueSchedulesInput, deps ProcessSchedulesDeps) ([]schedule.Schedule, error) {
	date, hhmm := schedule.Clock(in.Now, deps.Location)
	candidates, err := deps.Schedules.ListDue(ctx, date, hhmm)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	due := candidates[:0]
	for _, s := range candidates {
		if s.IsDue(date, hhmm) {
			due = append(due, s)
		}
	}
	return due, nil
}

// ProcessScheduleInput is one due schedule.
type ProcessScheduleInput struct {
	Schedule schedule.Schedule
}

// ExecuteProcessSchedule claims a schedule, dispatches it, and records the
// terminal state.
// PRE: in.Schedule was returned by ExecuteFindDueSchedules
// POST: Returns schedule.ErrAlreadyClaimed if another run owns it; otherwise
// the schedule is sent or failed and the result says which
func ExecuteProcessSchedule(ctx context.Context, in ProcessScheduleInput, deps ProcessSchedulesDeps) (ScheduleResult, error) {
	s := in.Schedule
	now := deps.Now()

	won, err := deps.Schedules.Claim(ctx, s.ID, now)
	if err != nil {
		derr := delivery.WithSchedule(delivery.Store(err), s.ID)
		slog.Error("schedule_claim_failed", "schedule_id", s.ID, "error", err)
		metrics.RecordSchedule(StatusNotClaimed)
		return ScheduleResult{ScheduleID: s.ID, Status: StatusNotClaimed, Error: "not claimed: " + derr.Error()}, derr
	}
	if !won {
		slog.Info("schedule_claimed_elsewhere", "schedule_id", s.ID)
		metrics.RecordSchedule("skipped")
		return ScheduleResult{ScheduleID: s.ID}, schedule.ErrAlreadyClaimed
	}
	// Mirror the row claim on the local copy.
	s.Status, s.ClaimedAt = schedule.StatusProcessing, now

	campaignID, recipients, runErr := runSchedule(ctx, s, deps)

	result := ScheduleResult{ScheduleID: s.ID, CampaignID: campaignID}
	if runErr != nil {
		derr := delivery.WithSchedule(runErr, s.ID)
		_ = s.MarkFailed(derr.Error(), campaignID)
		result.Status = schedule.StatusFailed
		result.Error = derr.Error()
		slog.Warn("schedule_failed", "schedule_id", s.ID, "kind", derr.Kind, "error", derr.Error())
		recordEvent(ctx, deps.Events, deps.GenerateID, now, domainOutbox.TopicScheduleFailed, domainOutbox.ScheduleFailed{
			ScheduleID: s.ID,
			Kind:       string(derr.Kind),
			Error:      derr.Error(),
		})
	} else {
		_ = s.MarkSent(deps.Now(), campaignID)
		result.Status = schedule.StatusSent
		result.Recipients = recipients
		slog.Info("schedule_processed", "schedule_id", s.ID, "status", schedule.StatusSent, "recipients", recipients)
		recordEvent(ctx, deps.Events, deps.GenerateID, now, domainOutbox.TopicScheduleSent, domainOutbox.ScheduleSent{
			ScheduleID: s.ID,
			CampaignID: campaignID,
			Recipients: recipients,
		})
	}

	if err := deps.Schedules.Complete(ctx, s); err != nil {
		slog.Error("schedule_complete_failed", "schedule_id", s.ID, "status", s.Status, "error", err)
		metrics.RecordSchedule(result.Status)
		return result, delivery.WithSchedule(delivery.Store(err), s.ID)
	}
	metrics.RecordSchedule(result.Status)
	return result, nil
}

// runSchedule is the template -> recipients -> campaign -> dispatch pipeline.
// It returns the campaign id as soon as the record exists.
func runSchedule(ctx context.Context, s schedule.Schedule, deps ProcessSchedulesDeps) (string, int, error) {
	tpl, err := deps.Templates.GetByID(ctx, s.TemplateID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, delivery.TemplateNotFound(s.TemplateID, err)
	}
	if err != nil {
		return "", 0, delivery.Store(err)
	}
	if err := tpl.Validate(); err != nil {
		return "", 0, delivery.TemplateInvalid(tpl.ID, err)
	}
	html, err := tpl.HTML()
	if err != nil {
		return "", 0, delivery.TemplateInvalid(tpl.ID, err)
	}

	sel, err := recipient.ParseSelector(s.Recipients)
	if err != nil {
		return "", 0, delivery.NoRecipients()
	}
	recipients, err := ExecuteResolveRecipients(ctx, ResolveRecipientsInput{Selector: sel},
		ResolveRecipientsDeps{Customers: deps.Customers})
	if err != nil {
		return "", 0, err
	}

	res, err := deliverCampaign(ctx, campaignDelivery{
		Draft: campaign.Draft{
			Subject:    tpl.Subject,
			Content:    html,
			Recipients: recipient.Addresses(recipients),
			Source:     campaign.SourceSchedule,
			ScheduleID: s.ID,
		},
		Recipients: recipients,
		TrackOpens: s.TrackOpens,
	}, deliveryDeps{
		Campaigns:  deps.Campaigns,
		Sender:     deps.Sender,
		Events:     deps.Events,
		Location:   deps.Location,
		Now:        deps.Now,
		GenerateID: deps.GenerateID,
	})
	if err != nil {
		return res.CampaignID, 0, err
	}

	if err := deps.Templates.MarkUsed(ctx, tpl.ID, today(deps.Now(), deps.Location)); err != nil {
		slog.Warn("template_mark_used_failed", "template_id", tpl.ID, "error", err)
	}
	return res.CampaignID, len(recipients), nil
}

// ProcessDueSchedulesResult is the outcome of one cron invocation.
type ProcessDueSchedulesResult struct {
	Results []ScheduleResult
}

// ExecuteProcessDueSchedules finds and processes every due schedule in
// order. One schedule's failure never stops the rest; schedules claimed by an
// overlapping run are left out of the results.
// PRE: deps are wired
// POST: Every returned schedule is in a terminal state, except StatusNotClaimed
// entries which are still scheduled
func ExecuteProcessDueSchedules(ctx context.Context, deps ProcessSchedulesDeps) (ProcessDueSchedulesResult, error) {
	due, err := ExecuteFindDueSchedules(ctx, FindDueSchedulesInput{Now: deps.Now()}, deps)
	if err != nil {
		return ProcessDueSchedulesResult{}, err
	}
	if len(due) == 0 {
		return ProcessDueSchedulesResult{Results: []ScheduleResult{}}, nil
	}

	slog.Info("due_schedules_found", "count", len(due))
	results := make([]ScheduleResult, 0, len(due))
	for _, s := range due {
		res, err := ExecuteProcessSchedule(ctx, ProcessScheduleInput{Schedule: s}, deps)
		if errors.Is(err, schedule.ErrAlreadyClaimed) {
			continue
		}
		results = append(results, res)
	}
	return ProcessDueSchedulesResult{Results: results}, nil
}
