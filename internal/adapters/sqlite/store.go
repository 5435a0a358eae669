// Package sqlite is the hospital database: departments, doctors, patients,
// appointments, medical records, billing, reviews and parking.
//
// Every write runs in an immediate transaction, so two bookings racing for the
// same slot are serialized by SQLite itself.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// TimeLayout is how timestamps are stored and compared in SQL.
const TimeLayout = "2006-01-02 15:04:05"

// DateLayout is how calendar dates are stored.
const DateLayout = "2006-01-02"

// Store is the hospital database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used by time-based business rules.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLocation sets the wall-clock zone timestamps are stored in (default: Local).
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.loc = loc
	}
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logging.NewNop(),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates any missing table.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for administration commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Now returns the store clock in the storage zone.
func (s *Store) Now() time.Time {
	return s.now().In(s.loc)
}

// Location is the wall-clock zone of stored timestamps.
func (s *Store) Location() *time.Location {
	return s.loc
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in an immediate transaction, committed only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dbErr(err)
	}
	return nil
}

func (s *Store) format(t time.Time) string {
	return t.In(s.loc).Format(TimeLayout)
}

func (s *Store) parse(v string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, v, s.loc)
}

// dbErr marks a database failure as an external-service error. Business
// rule failures are returned as domain errors before reaching here.
func dbErr(err error) error {
	if err == nil {
		return nil
	}
	var te *domain.ToolError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.External("database", err)
}
