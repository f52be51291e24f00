package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crmmail/internal/adapters/storage"
	domain "crmmail/internal/domain/campaign"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

const selectColumns = `SELECT id, name, subject, content, recipients, sent, opened, clicked,
	date, source, schedule_id, created_at FROM email_campaign`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new campaign store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a campaign record. Campaigns are append-only apart from
// their engagement counters.
// PRE: c was built by domain.New
func (s *SQLiteStore) Create(ctx context.Context, c domain.Campaign) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_campaign (id, name, subject, content, recipients, sent, opened, clicked,
		   date, source, schedule_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Subject, c.Content, c.Recipients, c.Sent, c.Opened, c.Clicked,
		c.Date, c.Source, c.ScheduleID, c.CreatedAt.UTC().Format(timeLayout))
	return err
}

// GetByID retrieves a campaign.
// POST: Returns domain.ErrNotFound if absent
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Campaign, error) {
	c, err := scanCampaign(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Campaign{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return c, err
}

// List returns campaigns newest first. limit <= 0 returns all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]domain.Campaign, error) {
	query := selectColumns + " ORDER BY created_at DESC, id ASC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// IncrementOpened adds one to the opened counter in a single statement.
// POST: Returns domain.ErrNotFound if no campaign has this id
func (s *SQLiteStore) IncrementOpened(ctx context.Context, id string) error {
	return s.increment(ctx, "UPDATE email_campaign SET opened = opened + 1 WHERE id = ?", id)
}

// IncrementClicked adds one to the clicked counter in a single statement.
// POST: Returns domain.ErrNotFound if no campaign has this id
func (s *SQLiteStore) IncrementClicked(ctx context.Context, id string) error {
	return s.increment(ctx, "UPDATE email_campaign SET clicked = clicked + 1 WHERE id = ?", id)
}

func (s *SQLiteStore) increment(ctx context.Context, query, id string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row scanner) (domain.Campaign, error) {
	var c domain.Campaign
	var createdAt string
	err := row.Scan(&c.ID, &c.Name, &c.Subject, &c.Content, &c.Recipients, &c.Sent, &c.Opened, &c.Clicked,
		&c.Date, &c.Source, &c.ScheduleID, &createdAt)
	if err != nil {
		return domain.Campaign{}, err
	}
	c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return c, nil
}
