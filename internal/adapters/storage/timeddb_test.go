package storage

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"crmmail/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTimedDB_ExecContext verifies ExecContext records timing with a query label.
func TestTimedDB_ExecContext(t *testing.T) {
	db := openTimedTestDB(t)
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(db, collector)

	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimedDB_QueryRowContext verifies reads pass through.
func TestTimedDB_QueryRowContext(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil)
	ctx := context.Background()

	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello")
	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "1").Scan(&val); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if val != "hello" {
		t.Errorf("val = %q, want hello", val)
	}
}

// TestTimedDB_QueryContext verifies multi-row reads.
func TestTimedDB_QueryContext(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, perf.NewCollector(10))
	ctx := context.Background()
	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "a")
	tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "2", "b")

	rows, err := tdb.QueryContext(ctx, "SELECT id FROM test ORDER BY id")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count != 2 {
		t.Errorf("rows = %d, want 2", count)
	}
}

// TestTimedDB_ErrorPassthrough verifies SQL errors are returned unchanged.
func TestTimedDB_ErrorPassthrough(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil)
	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO missing (id) VALUES (?)", "1"); err == nil {
		t.Error("expected error for missing table")
	}
	if err := tdb.QueryRowContext(context.Background(), "SELECT val FROM test WHERE id = ?", "none").Scan(new(string)); err != sql.ErrNoRows {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

// TestTimedDB_ImplementsSQLDB verifies the interface is satisfied.
func TestTimedDB_ImplementsSQLDB(t *testing.T) {
	db := openTimedTestDB(t)
	var _ SQLDB = NewTimedDB(db, nil)
}

// TestTimedDB_Dialect verifies the default and override dialect.
func TestTimedDB_Dialect(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil)
	if tdb.Dialect() != DialectSQLite {
		t.Errorf("default dialect = %q", tdb.Dialect())
	}
	if tdb.WithDialect(DialectPostgres).Dialect() != DialectPostgres {
		t.Error("WithDialect did not apply")
	}
}

// TestTimedDB_ConcurrentExec verifies the collector counts concurrent writes.
func TestTimedDB_ConcurrentExec(t *testing.T) {
	db := openTimedTestDB(t)
	collector := perf.NewCollector(1000)
	tdb := NewTimedDB(db, collector)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", strings.Repeat("x", i+1), "v")
		}(i)
	}
	wg.Wait()
	if collector.TotalRecorded() != 20 {
		t.Errorf("TotalRecorded = %d, want 20", collector.TotalRecorded())
	}
}

// TestQueryLabel verifies the verb/table labels used in timing output.
func TestQueryLabel(t *testing.T) {
	tests := map[string]string{
		"SELECT id FROM email_campaign WHERE id = ?":        "SELECT email_campaign",
		"INSERT INTO outbox (id) VALUES (?)":                "INSERT outbox",
		"UPDATE email_schedule SET status = ?":              "UPDATE email_schedule",
		"DELETE FROM email_template WHERE id = ?":           "DELETE email_template",
		"  select count(*) from customer":                   "SELECT customer",
		"PRAGMA foreign_keys=ON":                            "PRAGMA",
		"":                                                  "",
	}
	for q, want := range tests {
		if got := queryLabel(q); got != want {
			t.Errorf("queryLabel(%q) = %q, want %q", q, got, want)
		}
	}
}
