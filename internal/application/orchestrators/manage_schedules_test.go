package orchestrators

import (
	"context"
	"errors"
	"testing"

	"crmmail/internal/domain/schedule"
)

func TestExecuteCreateSchedule(t *testing.T) {
	store := newMockScheduleStore()
	deps := CreateScheduleDeps{Schedules: store, Now: clock, GenerateID: idGen("s")}

	s, err := ExecuteCreateSchedule(context.Background(), CreateScheduleInput{
		Name:          " Weekly ",
		TemplateID:    "t1",
		Recipients:    " a@example.com , ,b@example.com",
		ScheduledDate: "2024-02-01",
		ScheduledTime: "9:05",
	}, deps)
	if err != nil {
		t.Fatalf("ExecuteCreateSchedule: %v", err)
	}
	if s.ScheduledTime != "09:05" {
		t.Errorf("ScheduledTime = %q, want 09:05", s.ScheduledTime)
	}
	if s.Recipients != "a@example.com,b@example.com" {
		t.Errorf("Recipients = %q", s.Recipients)
	}
	if s.Status != schedule.StatusScheduled || !s.TrackOpens || s.Name != "Weekly" {
		t.Errorf("schedule = %+v", s)
	}
	if got := store.get(s.ID); got.ID != s.ID {
		t.Error("schedule was not stored")
	}
}

func TestExecuteCreateSchedule_TrackOpensFalse(t *testing.T) {
	off := false
	s, err := ExecuteCreateSchedule(context.Background(), CreateScheduleInput{
		Name: "n", TemplateID: "t1", Recipients: "all", ScheduledDate: "2024-02-01", ScheduledTime: "10:00",
		TrackOpens: &off,
	}, CreateScheduleDeps{Schedules: newMockScheduleStore(), Now: clock, GenerateID: idGen("s")})
	if err != nil {
		t.Fatalf("ExecuteCreateSchedule: %v", err)
	}
	if s.TrackOpens {
		t.Error("TrackOpens should be false")
	}
}

func TestExecuteCreateSchedule_Validation(t *testing.T) {
	valid := CreateScheduleInput{Name: "n", TemplateID: "t1", Recipients: "all", ScheduledDate: "2024-02-01", ScheduledTime: "10:00"}
	tests := []struct {
		name   string
		mutate func(*CreateScheduleInput)
		want   error
	}{
		{"no name", func(in *CreateScheduleInput) { in.Name = " " }, schedule.ErrEmptyName},
		{"no template", func(in *CreateScheduleInput) { in.TemplateID = "" }, schedule.ErrEmptyTemplateID},
		{"no recipients", func(in *CreateScheduleInput) { in.Recipients = " , " }, schedule.ErrEmptyRecipients},
		{"bad date", func(in *CreateScheduleInput) { in.ScheduledDate = "01/02/2024" }, schedule.ErrInvalidDate},
		{"bad time", func(in *CreateScheduleInput) { in.ScheduledTime = "25:00" }, schedule.ErrInvalidTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			store := newMockScheduleStore()
			_, err := ExecuteCreateSchedule(context.Background(), in,
				CreateScheduleDeps{Schedules: store, Now: clock, GenerateID: idGen("s")})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(store.schedules) != 0 {
				t.Error("invalid schedule stored")
			}
		})
	}
}

func TestPadTime(t *testing.T) {
	tests := map[string]string{
		"9:05":   "09:05",
		"09:05":  "09:05",
		" 23:59": "23:59",
		"noon":   "noon",
	}
	for in, want := range tests {
		if got := padTime(in); got != want {
			t.Errorf("padTime(%q) = %q, want %q", in, got, want)
		}
	}
}
