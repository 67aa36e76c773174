// ABOUTME: Tests for SQL dialect rendering and driver error classification.
// ABOUTME: PostgreSQL output is checked as SQL text; SQLite errors come from a live database.
package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

func TestDialectFor(t *testing.T) {
	for _, name := range []string{"", "sqlite"} {
		d, err := DialectFor(name)
		if err != nil || d.Name() != BackendSQLite {
			t.Errorf("DialectFor(%q) = %v, %v", name, d, err)
		}
	}
	for _, name := range []string{"postgres", "postgresql"} {
		d, err := DialectFor(name)
		if err != nil || d.Name() != BackendPostgres {
			t.Errorf("DialectFor(%q) = %v, %v", name, d, err)
		}
	}
	if _, err := DialectFor("oracle"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestPostgresCreateTable(t *testing.T) {
	e := NewEngine(PostgresDialect{}, zerolog.Nop())

	stmts, err := e.CreateTableStatements("S1")
	if err != nil {
		t.Fatalf("CreateTableStatements failed: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected table and index statements, got %d", len(stmts))
	}

	ddl := stmts[0]
	for _, want := range []string{
		`CREATE TABLE data_collection."study_s1"`,
		`"survey_id" TEXT NOT NULL REFERENCES data_collection."surveys"(survey_id) ON DELETE CASCADE`,
		`"data_point_id" TEXT PRIMARY KEY`,
		`"creation_date" TIMESTAMPTZ NOT NULL DEFAULT now()`,
		`"gender" data_collection.gender_enum`,
		`"activities" data_collection.activities_enum[]`,
		`"location" geometry(Geometry, 4326)`,
		`"notes" TEXT`,
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("DDL missing %q:\n%s", want, ddl)
		}
	}
	if !strings.Contains(stmts[1], `CREATE INDEX "study_s1_sidx" ON data_collection."study_s1"`) {
		t.Errorf("unexpected index statement: %s", stmts[1])
	}
}

func TestSQLiteCreateTable(t *testing.T) {
	e := NewEngine(SQLiteDialect{}, zerolog.Nop())

	stmts, err := e.CreateTableStatements("S1")
	if err != nil {
		t.Fatalf("CreateTableStatements failed: %v", err)
	}
	for _, want := range []string{
		`CREATE TABLE "study_s1"`,
		`"gender" TEXT CHECK ("gender" IN ('male', 'female', 'unknown'))`,
		`json_valid("location")`,
	} {
		if !strings.Contains(stmts[0], want) {
			t.Errorf("DDL missing %q:\n%s", want, stmts[0])
		}
	}
}

func TestPostgresBaseSchema(t *testing.T) {
	stmts := PostgresDialect{}.BaseSchema()
	joined := strings.Join(stmts, "\n")

	for _, want := range []string{
		"CREATE EXTENSION IF NOT EXISTS postgis",
		"CREATE SCHEMA IF NOT EXISTS data_collection",
		"CREATE TYPE data_collection.age_enum AS ENUM ('0-14', '15-24', '25-64', '65+')",
		"EXCEPTION WHEN duplicate_object THEN NULL",
		`CREATE TABLE IF NOT EXISTS data_collection."studies"`,
		`CREATE TABLE IF NOT EXISTS data_collection."token_blacklist"`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("base schema missing %q", want)
		}
	}
	if strings.Contains(joined, "location_enum") || strings.Contains(joined, "notes_enum") {
		t.Error("non-enumerated fields should not get enum types")
	}
}

func TestPostgresUpsertStatement(t *testing.T) {
	e := NewEngine(PostgresDialect{}, zerolog.Nop())

	enc, err := e.prepareWrite("sv1", models.Record{"data_point_id": "d1", "location": []float64{1, 2}})
	if err != nil {
		t.Fatalf("prepareWrite failed: %v", err)
	}
	got := e.upsertStatement("study_s1", enc)

	want := `INSERT INTO data_collection."study_s1" ("survey_id", "data_point_id", "last_updated", "location") ` +
		`VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)) ` +
		`ON CONFLICT ("data_point_id") DO UPDATE SET "survey_id" = excluded."survey_id", ` +
		`"last_updated" = excluded."last_updated", "location" = excluded."location"`
	if got != want {
		t.Errorf("upsert =\n%s\nwant\n%s", got, want)
	}
}

func TestPostgresClassify(t *testing.T) {
	d := PostgresDialect{}
	tests := []struct {
		code string
		want errClass
	}{
		{"23505", classUnique},
		{"23503", classForeignKey},
		{"23514", classCheck},
		{"22P02", classCheck},
		{"23502", classNotNull},
		{"42P07", classTableExists},
		{"42P01", classTableMissing},
		{"XX000", classOther},
	}
	for _, tt := range tests {
		err := &pgconn.PgError{Code: tt.code}
		if got := d.classify(err); got != tt.want {
			t.Errorf("classify(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
	if d.classify(errors.New("plain")) != classOther {
		t.Error("non-pg errors should be classOther")
	}
}

func TestSQLiteClassifyLive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.SQL().ExecContext(ctx, `SELECT * FROM "study_missing"`)
	if err == nil {
		t.Fatal("expected error selecting from a missing table")
	}
	if got := (SQLiteDialect{}).classify(err); got != classTableMissing {
		t.Errorf("classify(missing table) = %v, want classTableMissing", got)
	}

	if _, err := db.SQL().ExecContext(ctx, `CREATE TABLE "studies" (x TEXT)`); err == nil {
		t.Fatal("expected error creating an existing table")
	} else if got := (SQLiteDialect{}).classify(err); got != classTableExists {
		t.Errorf("classify(existing table) = %v, want classTableExists", got)
	}
}
