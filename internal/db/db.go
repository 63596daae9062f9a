package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dori/phitodo/internal/clock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps the SQL database connection. All writes are serialized through
// a single writer lock: either one Transaction at a time, or an Exclusive
// section that runs several transactions back to back.
type DB struct {
	*sql.DB
	clock   clock.Clock
	writeMu sync.Mutex
}

// Option configures Open.
type Option func(*DB)

// WithClock sets the clock used for created_at/updated_at/completed_at.
func WithClock(c clock.Clock) Option {
	return func(db *DB) { db.clock = c }
}

// Open opens a database connection and runs migrations
func Open(dbPath string, opts ...Option) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, clock: clock.Real()}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// migrate runs database migrations using embedded SQL files
func (db *DB) migrate() error {
	// Silence goose logging (it corrupts TUI output)
	goose.SetLogger(log.New(io.Discard, "", 0))
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Now returns the store's notion of the current time.
func (db *DB) Now() time.Time {
	return db.clock.Now()
}

// Transaction runs fn inside one atomic transaction while holding the
// writer lock. fn must only use the *Tx it is given: querying through db
// from inside fn blocks on the single connection.
func (db *DB) Transaction(ctx context.Context, fn func(*Tx) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	return db.transaction(ctx, fn)
}

// Exclusive holds the writer lock for the whole of fn. Transactions opened
// through the Session commit independently, so a failure in one does not
// roll back the others, but no other writer can interleave.
func (db *DB) Exclusive(ctx context.Context, fn func(*Session) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	return fn(&Session{db: db, ctx: ctx})
}

// Session is a writer-locked section obtained from Exclusive.
type Session struct {
	db  *DB
	ctx context.Context
}

// Transaction runs fn atomically without re-acquiring the writer lock.
func (s *Session) Transaction(fn func(*Tx) error) error {
	return s.db.transaction(s.ctx, fn)
}

func (db *DB) transaction(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Tx{q: sqlTx, clock: db.clock}); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// reader returns a Tx bound to the pool for read-only helpers.
func (db *DB) reader() *Tx {
	return &Tx{q: db.DB, clock: db.clock}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx exposes the store operations inside a transaction.
type Tx struct {
	q     queryer
	clock clock.Clock
}

const (
	timeLayout = time.RFC3339Nano
	dateLayout = "2006-01-02"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(timeLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
