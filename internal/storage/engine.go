// ABOUTME: Engine runs study storage operations against an injected executor.
// ABOUTME: Failed statements are logged with their text and parameters, then classified.
package storage

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
)

// Execer is the executor every storage operation runs against. *sql.DB,
// *sql.Tx and *sql.Conn all satisfy it, so callers choose the transaction
// boundary.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Engine holds the stateless pieces shared by all operations: the dialect,
// the record codec, and the logger. It is safe for concurrent use.
type Engine struct {
	dialect Dialect
	codec   *Codec
	log     zerolog.Logger
}

// NewEngine creates an Engine for the given dialect.
func NewEngine(d Dialect, log zerolog.Logger) *Engine {
	return &Engine{
		dialect: d,
		codec:   NewCodec(d),
		log:     log.With().Str("component", "storage").Str("backend", d.Name()).Logger(),
	}
}

// Dialect returns the engine's SQL dialect.
func (e *Engine) Dialect() Dialect { return e.dialect }

// Codec returns the engine's record codec.
func (e *Engine) Codec() *Codec { return e.codec }

func (e *Engine) exec(ctx context.Context, q Execer, table, query string, args ...any) (sql.Result, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, e.fail(err, table, query, args)
	}
	return res, nil
}

func (e *Engine) query(ctx context.Context, q Execer, table, query string, args ...any) (*sql.Rows, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, e.fail(err, table, query, args)
	}
	return rows, nil
}

// fail logs a failed statement and translates the driver error.
func (e *Engine) fail(err error, table, query string, args []any) error {
	e.log.Error().
		Err(err).
		Str("statement", query).
		Interface("params", args).
		Msg("statement failed")
	return e.translate(err, table)
}

func (e *Engine) translate(err error, table string) error {
	switch e.dialect.classify(err) {
	case classUnique:
		return &ConstraintError{Kind: ConstraintUnique, Err: err}
	case classForeignKey:
		return &ConstraintError{Kind: ConstraintForeignKey, Err: err}
	case classCheck:
		return &ConstraintError{Kind: ConstraintCheck, Err: err}
	case classNotNull:
		return &ConstraintError{Kind: ConstraintNotNull, Err: err}
	case classTableExists:
		return &TableAlreadyExistsError{Table: table}
	case classTableMissing:
		return &TableNotFoundError{Table: table}
	}
	return err
}
