// Package store persists transactions, filers and crawl runs to a sql database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"stocksentinel-backend/internal/components/assert"
	"stocksentinel-backend/internal/components/telemetry"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSql string

const (
	DRIVER_SQLITE   = "sqlite"
	DRIVER_LIBSQL   = "libsql"
	DRIVER_POSTGRES = "postgres"

	report_store_upsert = "store.upsert"
)

type Options struct {
	// Driver is one of sqlite, libsql or postgres, it defaults to sqlite.
	Driver string `json:"driver"`
	// Source is a file path (or :memory:) for sqlite, a libsql url or a postgres dsn.
	Source string `json:"source"`
}

type Store struct {
	db      *sql.DB
	dialect dialect
	tel     telemetry.API
}

type dialect struct {
	numbered bool
}

// rebind rewrites ? placeholders into $n placeholders for dialects that need it.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var out strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			out.WriteByte('$')
			out.WriteString(strconv.Itoa(n))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

func wrapOpen(err error) error {
	return fmt.Errorf("open store: %w", err)
}

func openSqlite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects to the configured database and creates the schema if it does not exist.
func Open(ctx context.Context, opts Options, tel telemetry.API) (Store, error) {
	assert.NotNil(tel)

	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch opts.Driver {
	case "", DRIVER_SQLITE:
		db, err = openSqlite(opts.Source)
	case DRIVER_LIBSQL:
		db, err = sql.Open("libsql", opts.Source)
	case DRIVER_POSTGRES:
		db, err = sql.Open("pgx", opts.Source)
		d.numbered = true
	default:
		err = fmt.Errorf("unknown driver '%s'", opts.Driver)
	}
	if err != nil {
		return Store{}, wrapOpen(err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return Store{}, wrapOpen(err)
	}

	s := Store{
		db:      db,
		dialect: d,
		tel:     telemetry.NewScopedAPI("store", tel),
	}
	err = s.migrate(ctx)
	if err != nil {
		db.Close()
		return Store{}, wrapOpen(err)
	}
	return s, nil
}

func (s Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSql, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt = strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}
