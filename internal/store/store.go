package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/lazyset/internal/metrics"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added the entity type catalog
const currentSchemaVersion = 1

// Statement kinds, used as the metrics "kind" label.
const (
	KindSelect = "select"
	KindExists = "exists"
	KindExec   = "exec"
)

// ErrNotFound is returned by Get when no row has the requested key.
var ErrNotFound = errors.New("record not found")

// QueryEvent describes one executed statement.
type QueryEvent struct {
	Kind     string
	SQL      string
	Args     []any
	Duration time.Duration
	Err      error
}

// QueryObserver receives every statement the store executes.
type QueryObserver func(QueryEvent)

// Store wraps a SQLite database holding entity tables.
type Store struct {
	db      *sql.DB
	queries atomic.Int64

	mu        sync.Mutex
	observers map[int]QueryObserver
	nextObs   int
}

// Option configures Open.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, o); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, observers: make(map[int]QueryObserver)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Statements run on it are not counted.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Query executes a row-returning statement.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := s.track(KindSelect, query, args, func() error {
		var err error
		rows, err = s.db.QueryContext(ctx, query, args...)
		return err
	})
	return rows, err
}

// Exists executes a statement yielding a single boolean column.
func (s *Store) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	err := s.track(KindExists, query, args, func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(&found)
	})
	return found, err
}

// QueryCount returns the number of statements executed so far.
func (s *Store) QueryCount() int64 {
	return s.queries.Load()
}

// Observe registers fn for every subsequent statement and returns a
// function that unregisters it.
func (s *Store) Observe(fn QueryObserver) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// track runs one statement, counting and reporting it.
func (s *Store) track(kind, query string, args []any, run func() error) error {
	s.queries.Add(1)
	start := time.Now()
	err := run()
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.QueriesTotal.WithLabelValues(kind, status).Inc()
	metrics.QueryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())

	s.mu.Lock()
	observers := make([]QueryObserver, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	ev := QueryEvent{Kind: kind, SQL: query, Args: args, Duration: elapsed, Err: err}
	for _, fn := range observers {
		fn(ev)
	}
	return err
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB, o options) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the catalog if it doesn't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// Version 1 is the first catalog; schema.sql creates it for new and
	// pre-catalog databases alike, so there is nothing to backfill.
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
