package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crmmail/internal/adapters/storage"
	domain "crmmail/internal/domain/customer"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

const selectColumns = "SELECT id, name, email, company, status, created_at FROM customer"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new customer store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Customer by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	var c domain.Customer
	var createdAt string
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("customer not found: %w", err)
	}
	if err != nil {
		return domain.Customer{}, err
	}
	c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return c, nil
}

// Save persists a Customer to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, c domain.Customer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customer (id, name, email, company, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, email=excluded.email, company=excluded.company, status=excluded.status`,
		c.ID, c.Name, c.Email, c.Company, c.Status, c.CreatedAt.UTC().Format(timeLayout))
	return err
}

// List retrieves customers matching the filter, newest first.
// PRE: filter has valid parameters
// POST: Returns matching entities; an unset Limit returns every match
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Customer, error) {
	query := selectColumns + " WHERE 1=1"
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Customer
	for rows.Next() {
		var c domain.Customer
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.Status, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		results = append(results, c)
	}
	return results, rows.Err()
}
