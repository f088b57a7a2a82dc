// Package sqlkv is a core.KVStore backed by a single SQL table, on Postgres (lib/pq) or SQLite (modernc).
// The schema is managed by the goose migrations embedded in the package.
package sqlkv

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/practicum/core"
)

// Drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// MigrationsDir is the directory of the embedded migrations.
const MigrationsDir = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS

var dialects = map[string]string{
	DriverPostgres: "postgres",
	DriverSQLite:   "sqlite3",
}

func init() {
	// modernc registers "sqlite", unknown to sqlx
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Store struct {
	db     *sqlx.DB
	driver string
}

var _ core.KVStore = (*Store)(nil) // interface compliance check

// Open connects with driver to dsn, waits for the database and migrates it up.
func Open(ctx context.Context, driver, dsn string, logger core.Logger) (*Store, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, errors.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // single writer
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db.DB, driver, logger, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, driver: driver}, nil
}

// DB returns the underlying database, for migration commands.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// Driver returns the sql driver name of s.
func (s *Store) Driver() string {
	return s.driver
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "pinging database")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

var gooseRunFunc = goose.RunContext // mockable

// Migrate runs the goose command (up, down, status, version, redo, reset...) over the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, driver string, logger core.Logger, command string, args ...string) error {
	dialect, ok := dialects[driver]
	if !ok {
		return errors.Errorf("unsupported sql driver %q", driver)
	}
	goose.SetBaseFS(Migrations)
	goose.SetLogger(gooseLogger{logger})
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := gooseRunFunc(ctx, command, db, MigrationsDir, args...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

const (
	getQuery    = `SELECT value FROM kv_entries WHERE name = ?`
	setQuery    = `INSERT INTO kv_entries (name, value, updated_at) VALUES (?, ?, ?) ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	removeQuery = `DELETE FROM kv_entries WHERE name = ?`
)

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var val string
	if err := s.db.GetContext(ctx, &val, s.db.Rebind(getQuery), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "reading %q", key)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(setQuery), key, value, core.NowFunc().UTC()); err != nil {
		return errors.Wrapf(err, "writing %q", key)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(removeQuery), key); err != nil {
		return errors.Wrapf(err, "removing %q", key)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// gooseLogger routes migration logs to a core.Logger.
type gooseLogger struct {
	logger core.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
