package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"crmmail/internal/domain/recipient"
	"crmmail/internal/domain/schedule"
)

// ScheduleCreator persists new schedules.
type ScheduleCreator interface {
	Create(ctx context.Context, s schedule.Schedule) error
}

// CreateScheduleInput carries the form fields for a new schedule.
type CreateScheduleInput struct {
	Name          string
	TemplateID    string
	Recipients    string
	ScheduledDate string
	ScheduledTime string
	TrackOpens    *bool // nil defaults to true
}

// CreateScheduleDeps holds dependencies for CreateSchedule.
type CreateScheduleDeps struct {
	Schedules  ScheduleCreator
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteCreateSchedule validates and stores a schedule in the scheduled state.
// PRE: none
// POST: Returns the stored schedule or a schedule validation error; the time
// is stored zero-padded and the selector in its canonical form
func ExecuteCreateSchedule(ctx context.Context, in CreateScheduleInput, deps CreateScheduleDeps) (schedule.Schedule, error) {
	s := schedule.Schedule{
		ID:            deps.GenerateID(),
		Name:          strings.TrimSpace(in.Name),
		TemplateID:    strings.TrimSpace(in.TemplateID),
		ScheduledDate: strings.TrimSpace(in.ScheduledDate),
		ScheduledTime: padTime(in.ScheduledTime),
		Status:        schedule.StatusScheduled,
		TrackOpens:    in.TrackOpens == nil || *in.TrackOpens,
		CreatedAt:     deps.Now(),
	}
	if sel, err := recipient.ParseSelector(in.Recipients); err == nil {
		s.Recipients = sel.String()
	}
	if err := s.Validate(); err != nil {
		return schedule.Schedule{}, err
	}
	if err := deps.Schedules.Create(ctx, s); err != nil {
		return schedule.Schedule{}, err
	}
	slog.Info("schedule_created", "schedule_id", s.ID, "template_id", s.TemplateID, "date", s.ScheduledDate, "time", s.ScheduledTime)
	return s, nil
}

// padTime turns "9:05" into "09:05" so stored times compare as strings.
// Anything unparseable is returned trimmed for Validate to reject.
func padTime(raw string) string {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(schedule.TimeLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format(schedule.TimeLayout)
}
