// ABOUTME: Database connection and lifecycle management for both backends.
// ABOUTME: SQLite uses modernc.org/sqlite (pure Go); PostgreSQL uses pgx through database/sql.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/rs/zerolog"
	"github.com/sidewalklabs/commonspace-sub000/internal/metrics"
	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

// DB wraps a database connection and implements Repository on top of Engine.
type DB struct {
	db      *sql.DB
	target  string
	engine  *Engine
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used by the engine and for operation logs.
func WithLogger(l zerolog.Logger) Option {
	return func(d *DB) { d.log = l }
}

// WithMetrics records operation counts and durations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *DB) { d.metrics = m }
}

// Open opens or creates a SQLite database at the given path.
func Open(dbPath string, opts ...Option) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		filepath.ToSlash(dbPath))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := newDB(db, SQLiteDialect{}, dbPath, opts)
	if err := d.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set file permissions
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	return d, nil
}

// OpenPostgres connects to a PostGIS-enabled PostgreSQL database and
// bootstraps the data_collection schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("open postgres: empty DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	d := newDB(db, PostgresDialect{}, dsn, opts)
	if err := d.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// OpenBackend opens the named backend. Target is a file path for sqlite and a
// DSN for postgres.
func OpenBackend(ctx context.Context, backend, target string, opts ...Option) (*DB, error) {
	d, err := DialectFor(backend)
	if err != nil {
		return nil, err
	}
	if d.Name() == BackendPostgres {
		return OpenPostgres(ctx, target, opts...)
	}
	if target == "" {
		target = DefaultDBPath()
	}
	return Open(target, opts...)
}

func newDB(db *sql.DB, dialect Dialect, target string, opts []Option) *DB {
	d := &DB{db: db, target: target, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.engine = NewEngine(dialect, d.log)
	return d
}

func (d *DB) initSchema(ctx context.Context) error {
	if err := d.engine.InitSchema(ctx, d.db); err != nil {
		return err
	}
	return nil
}

// DataDir returns the default data directory following the XDG base directory layout.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "commonspace")
}

// DefaultDBPath returns the default database path following the XDG base directory layout.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "commonspace.db")
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Engine returns the engine for callers that manage their own executor.
func (d *DB) Engine() *Engine { return d.engine }

// SQL exposes the underlying sql.DB.
func (d *DB) SQL() *sql.DB { return d.db }

// Backend returns the backend name.
func (d *DB) Backend() string { return d.engine.Dialect().Name() }

// withTx runs fn in a transaction, committing only when fn succeeds.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// observe records the outcome of a repository operation.
func (d *DB) observe(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := statusOf(err)
	d.metrics.RecordOperation(op, status, elapsed)

	ev := d.log.Debug()
	if status == "error" {
		ev = d.log.Warn().Err(err)
	}
	ev.Str("operation", op).Str("status", status).Dur("duration", elapsed).Msg("store operation")
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}
