// ABOUTME: SQL dialects for the SQLite and PostgreSQL backends.
// ABOUTME: A dialect renders placeholders, column DDL, geometry expressions, and classifies driver errors.
package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sidewalklabs/commonspace-sub000/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Backend names accepted by Open and the configuration layer.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// PostgresSchema holds every table on the PostgreSQL backend.
const PostgresSchema = "data_collection"

// errClass is the dialect-independent classification of a driver error.
type errClass int

const (
	classOther errClass = iota
	classUnique
	classForeignKey
	classCheck
	classNotNull
	classTableExists
	classTableMissing
)

// Dialect renders backend-specific SQL.
type Dialect interface {
	Name() string
	// Placeholder renders the n-th (1-based) parameter binding.
	Placeholder(n int) string
	// Table renders a quoted, schema-qualified table reference.
	Table(name string) string
	// ColumnDef renders the DDL for one catalog column.
	ColumnDef(d models.FieldDescriptor) string
	// TimestampDef renders the DDL type of a defaulted, non-null timestamp.
	TimestampDef() string
	// NullableTimestampDef renders the DDL type of an optional timestamp.
	NullableTimestampDef() string
	// PointExpr builds a geometry point from the lng and lat parameters.
	PointExpr(lng, lat int) string
	// GeoJSONExpr builds a geometry from a GeoJSON text parameter.
	GeoJSONExpr(n int) string
	// GeometryProjection renders a geometry column as GeoJSON text.
	GeometryProjection(col string) string
	// ArrayProjection renders an array column as text the codec can parse.
	ArrayProjection(col string) string
	// TimeValue converts t into the driver value stored in timestamp columns.
	TimeValue(t time.Time) any
	// BaseSchema returns the statements creating the metadata tables.
	BaseSchema() []string
	// TableExistsQuery counts tables named by parameter 1.
	TableExistsQuery() string
	// StudyTablesQuery lists every provisioned study table name.
	StudyTablesQuery() string

	classify(err error) errClass
}

// DialectFor returns the dialect for a backend name.
func DialectFor(backend string) (Dialect, error) {
	switch backend {
	case BackendSQLite, "":
		return SQLiteDialect{}, nil
	case BackendPostgres, "postgresql":
		return PostgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteLiterals(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quoteLiteral(v)
	}
	return strings.Join(parts, ", ")
}

// SQLiteDialect targets modernc.org/sqlite. Geometry is stored as GeoJSON
// text and arrays as brace-delimited literals.
type SQLiteDialect struct{}

const sqliteNow = `(strftime('%Y-%m-%dT%H:%M:%f000000Z', 'now'))`

// sqliteTimeLayout is fixed width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (SQLiteDialect) Name() string { return BackendSQLite }

func (SQLiteDialect) Placeholder(n int) string { return "?" + strconv.Itoa(n) }

func (SQLiteDialect) Table(name string) string { return quoteIdent(name) }

func (SQLiteDialect) ColumnDef(d models.FieldDescriptor) string {
	col := quoteIdent(string(d.Name))
	switch d.ColumnType {
	case models.ColumnEnum:
		return fmt.Sprintf("%s TEXT CHECK (%s IN (%s))", col, col, quoteLiterals(d.Values))
	case models.ColumnEnumArray:
		return fmt.Sprintf("%s TEXT CHECK (%s IS NULL OR (substr(%s, 1, 1) = '{' AND substr(%s, -1, 1) = '}'))",
			col, col, col, col)
	case models.ColumnGeometry:
		return fmt.Sprintf("%s TEXT CHECK (%s IS NULL OR json_valid(%s))", col, col, col)
	default:
		return col + " TEXT"
	}
}

func (SQLiteDialect) TimestampDef() string { return "TEXT NOT NULL DEFAULT " + sqliteNow }

func (SQLiteDialect) NullableTimestampDef() string { return "TEXT" }

func (d SQLiteDialect) PointExpr(lng, lat int) string {
	return fmt.Sprintf("json_object('type', 'Point', 'coordinates', json_array(%s, %s))",
		d.Placeholder(lng), d.Placeholder(lat))
}

func (d SQLiteDialect) GeoJSONExpr(n int) string { return "json(" + d.Placeholder(n) + ")" }

func (SQLiteDialect) GeometryProjection(col string) string { return quoteIdent(col) }

func (SQLiteDialect) ArrayProjection(col string) string { return quoteIdent(col) }

func (SQLiteDialect) TimeValue(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) }

func (SQLiteDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?1`
}

func (SQLiteDialect) StudyTablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'study\_%' ESCAPE '\' ORDER BY name`
}

func (SQLiteDialect) classify(err error) errClass {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return classOther
	}

	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return classUnique
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return classForeignKey
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return classCheck
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return classNotNull
	}

	// Primary result codes only carry the message.
	msg := se.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return classUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return classForeignKey
	case strings.Contains(msg, "CHECK constraint failed"):
		return classCheck
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return classNotNull
	case strings.Contains(msg, "no such table"):
		return classTableMissing
	case strings.Contains(msg, "already exists"):
		return classTableExists
	}
	return classOther
}

// PostgresDialect targets PostgreSQL with PostGIS through pgx. Tables live in
// the data_collection schema and enumerated fields use native enum types.
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return BackendPostgres }

func (PostgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (PostgresDialect) Table(name string) string {
	return PostgresSchema + "." + quoteIdent(name)
}

// EnumTypeName is the PostgreSQL enum type backing an enumerated field.
func (PostgresDialect) EnumTypeName(field models.FieldName) string {
	return PostgresSchema + "." + string(field) + "_enum"
}

func (p PostgresDialect) ColumnDef(d models.FieldDescriptor) string {
	col := quoteIdent(string(d.Name))
	switch d.ColumnType {
	case models.ColumnEnum:
		return col + " " + p.EnumTypeName(d.Name)
	case models.ColumnEnumArray:
		return col + " " + p.EnumTypeName(d.Name) + "[]"
	case models.ColumnGeometry:
		return col + " geometry(Geometry, 4326)"
	default:
		return col + " TEXT"
	}
}

func (PostgresDialect) TimestampDef() string { return "TIMESTAMPTZ NOT NULL DEFAULT now()" }

func (PostgresDialect) NullableTimestampDef() string { return "TIMESTAMPTZ" }

func (p PostgresDialect) PointExpr(lng, lat int) string {
	return fmt.Sprintf("ST_SetSRID(ST_MakePoint(%s, %s), 4326)", p.Placeholder(lng), p.Placeholder(lat))
}

func (p PostgresDialect) GeoJSONExpr(n int) string {
	return "ST_GeomFromGeoJSON(" + p.Placeholder(n) + ")"
}

func (PostgresDialect) GeometryProjection(col string) string {
	return "ST_AsGeoJSON(" + quoteIdent(col) + ")"
}

func (PostgresDialect) ArrayProjection(col string) string {
	return "array_to_json(" + quoteIdent(col) + ")::text"
}

func (PostgresDialect) TimeValue(t time.Time) any { return t.UTC() }

func (PostgresDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = '` + PostgresSchema + `' AND table_name = $1`
}

func (PostgresDialect) StudyTablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = '` + PostgresSchema + `' AND table_name LIKE 'study\_%'
		ORDER BY table_name`
}

func (PostgresDialect) classify(err error) errClass {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return classOther
	}

	switch pgErr.Code {
	case "23505":
		return classUnique
	case "23503":
		return classForeignKey
	case "23514", "22P02":
		return classCheck
	case "23502":
		return classNotNull
	case "42P07":
		return classTableExists
	case "42P01":
		return classTableMissing
	}
	return classOther
}
