package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crmmail/internal/adapters/storage"
	domain "crmmail/internal/domain/schedule"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

const selectColumns = `SELECT id, name, template_id, recipients, scheduled_date, scheduled_time, status,
	track_opens, created_at, claimed_at, sent_at, campaign_id, error FROM email_schedule`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new ScheduleStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Schedule by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Schedule, error) {
	entity, err := scanSchedule(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Schedule{}, fmt.Errorf("schedule not found: %w", err)
	}
	return entity, err
}

// Create inserts a new Schedule. Existing rows are never overwritten; state
// changes go through Claim and Complete.
// PRE: entity has been validated
func (s *SQLiteStore) Create(ctx context.Context, e domain.Schedule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_schedule (id, name, template_id, recipients, scheduled_date, scheduled_time, status,
		   track_opens, created_at, claimed_at, sent_at, campaign_id, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.TemplateID, e.Recipients, e.ScheduledDate, e.ScheduledTime, e.Status,
		boolToInt(e.TrackOpens), e.CreatedAt.UTC().Format(timeLayout),
		formatTime(e.ClaimedAt), formatTime(e.SentAt), e.CampaignID, e.Error)
	return err
}

// Delete removes a Schedule that has not started processing.
// POST: Returns an error wrapping sql.ErrNoRows if absent, or
// domain.ErrNotScheduled if it has already been claimed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM email_schedule WHERE id = ? AND status = ?", id, domain.StatusScheduled)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrNotScheduled
}

// List returns schedules newest first, narrowed to one status when non-empty.
func (s *SQLiteStore) List(ctx context.Context, status string) ([]domain.Schedule, error) {
	query := selectColumns
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id ASC"
	return s.query(ctx, query, args...)
}

// ListDue returns scheduled schedules whose date is before today, or equal to
// today with a time at or before hhmm.
// PRE: today is YYYY-MM-DD, hhmm is zero-padded HH:MM
// POST: Results ordered by scheduled date then time
func (s *SQLiteStore) ListDue(ctx context.Context, today, hhmm string) ([]domain.Schedule, error) {
	return s.query(ctx,
		selectColumns+` WHERE status = ?
		   AND (scheduled_date < ? OR (scheduled_date = ? AND scheduled_time <= ?))
		 ORDER BY scheduled_date ASC, scheduled_time ASC, id ASC`,
		domain.StatusScheduled, today, today, hhmm)
}

// Claim atomically moves a schedule from scheduled to processing.
// POST: Returns true only for the single caller whose update matched
func (s *SQLiteStore) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE email_schedule SET status = ?, claimed_at = ? WHERE id = ? AND status = ?",
		domain.StatusProcessing, now.UTC().Format(timeLayout), id, domain.StatusScheduled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Complete writes the terminal outcome of a claimed schedule.
// PRE: e.Status is sent or failed
// POST: Row updated only if it is still processing, otherwise domain.ErrNotProcessing
func (s *SQLiteStore) Complete(ctx context.Context, e domain.Schedule) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE email_schedule SET status = ?, sent_at = ?, campaign_id = ?, error = ?
		 WHERE id = ? AND status = ?`,
		e.Status, formatTime(e.SentAt), e.CampaignID, e.Error, e.ID, domain.StatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotProcessing
	}
	return nil
}

// ListStale returns schedules still processing whose claim is older than
// claimedBefore. Read-only: recovering them is an operator decision because
// the dispatch may already have reached the provider.
// POST: Results ordered by claim time, oldest first
func (s *SQLiteStore) ListStale(ctx context.Context, claimedBefore time.Time) ([]domain.Schedule, error) {
	return s.query(ctx,
		selectColumns+` WHERE status = ? AND claimed_at != '' AND claimed_at < ?
		 ORDER BY claimed_at ASC, id ASC`,
		domain.StatusProcessing, claimedBefore.UTC().Format(timeLayout))
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Schedule
	for rows.Next() {
		entity, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (domain.Schedule, error) {
	var e domain.Schedule
	var trackOpens int
	var createdAt, claimedAt, sentAt string
	err := row.Scan(&e.ID, &e.Name, &e.TemplateID, &e.Recipients, &e.ScheduledDate, &e.ScheduledTime,
		&e.Status, &trackOpens, &createdAt, &claimedAt, &sentAt, &e.CampaignID, &e.Error)
	if err != nil {
		return domain.Schedule{}, err
	}
	e.TrackOpens = trackOpens != 0
	e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	e.ClaimedAt = parseTime(claimedAt)
	e.SentAt = parseTime(sentAt)
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeLayout, s)
	return t
}
