package template

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crmmail/internal/adapters/storage"
	domain "crmmail/internal/domain/template"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

const selectColumns = `SELECT id, name, subject, content, format, last_used, created_at, updated_at
	FROM email_template`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new template store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Template by its ID.
// PRE: id is non-empty
// POST: Returns the template, or an error wrapping sql.ErrNoRows if absent
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Template, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Template{}, fmt.Errorf("template not found: %w", err)
	}
	return t, err
}

// Save persists a Template (insert or update).
// PRE: template has been validated
func (s *SQLiteStore) Save(ctx context.Context, t domain.Template) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_template (id, name, subject, content, format, last_used, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, subject=excluded.subject, content=excluded.content,
		   format=excluded.format, last_used=excluded.last_used, updated_at=excluded.updated_at`,
		t.ID, t.Name, t.Subject, t.Content, t.Format, t.LastUsed,
		t.CreatedAt.UTC().Format(timeLayout), formatTime(t.UpdatedAt))
	return err
}

// Delete removes a Template.
// POST: Returns an error wrapping sql.ErrNoRows if nothing was deleted
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM email_template WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("template not found: %w", sql.ErrNoRows)
	}
	return nil
}

// List returns every template, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Template, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY created_at DESC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// MarkUsed records the dispatch date on a template without touching its content.
// POST: last_used == date; a missing template is not an error
func (s *SQLiteStore) MarkUsed(ctx context.Context, id, date string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE email_template SET last_used = ? WHERE id = ?", date, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (domain.Template, error) {
	var t domain.Template
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Content, &t.Format, &t.LastUsed, &createdAt, &updatedAt); err != nil {
		return domain.Template{}, err
	}
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if updatedAt != "" {
		t.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
