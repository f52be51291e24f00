package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour behind a connection. Stores write queries with
// '?' placeholders; TimedDB rebinds them for Postgres.
type Dialect string

// Supported dialects. The values double as database/sql driver names.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

// sqlitePragmas is appended to file DSNs: WAL, busy timeout, FK enforcement.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// ParseDialect maps a driver name from config to a Dialect.
// PRE: none
// POST: Returns an error for unknown drivers
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// Open opens a connection pool for the dialect.
// PRE: dsn is a file path or ":memory:" for sqlite, a postgres URL for pgx
// POST: Returns an open *sql.DB; the caller pings and closes it
func Open(d Dialect, dsn string) (*sql.DB, error) {
	if d == DialectSQLite && dsn != ":memory:" && !strings.Contains(dsn, "?") {
		dsn = dsn + "?" + sqlitePragmas
	}
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	return db, nil
}

// Rebind rewrites '?' placeholders to the dialect's positional form.
// Question marks inside single-quoted literals are left alone.
// PRE: query uses '?' placeholders
// POST: Returns query unchanged for sqlite, with $1..$n for postgres
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
