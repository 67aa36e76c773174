// ABOUTME: Metadata schema definition and initialization for both backends.
// ABOUTME: Defines the studies, surveys, and token_blacklist tables plus PostgreSQL enum types.
package storage

import (
	"context"
	"fmt"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

// Metadata table names shared by both backends.
const (
	tableStudies        = "studies"
	tableSurveys        = "surveys"
	tableTokenBlacklist = "token_blacklist"
)

func (d SQLiteDialect) BaseSchema() []string {
	return metadataSchema(d)
}

func (p PostgresDialect) BaseSchema() []string {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE SCHEMA IF NOT EXISTS ` + PostgresSchema,
	}
	for _, f := range models.AllFields() {
		if !f.IsEnumerated() {
			continue
		}
		stmts = append(stmts, fmt.Sprintf(`DO $$ BEGIN
	CREATE TYPE %s AS ENUM (%s);
EXCEPTION WHEN duplicate_object THEN NULL;
END $$`, p.EnumTypeName(f.Name), quoteLiterals(f.Values)))
	}
	return append(stmts, metadataSchema(p)...)
}

func metadataSchema(d Dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		study_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'stationary',
		status TEXT NOT NULL DEFAULT 'active',
		protocol_version TEXT NOT NULL DEFAULT '1.0',
		description TEXT,
		map TEXT,
		fields TEXT NOT NULL DEFAULT '[]',
		created_at %s,
		last_updated %s
	)`, d.Table(tableStudies), d.TimestampDef(), d.TimestampDef()),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		survey_id TEXT PRIMARY KEY,
		study_id TEXT NOT NULL REFERENCES %s(study_id) ON DELETE CASCADE,
		title TEXT,
		location_id TEXT,
		surveyor_email TEXT,
		method TEXT NOT NULL DEFAULT 'analog',
		start_date %s,
		end_date %s,
		created_at %s
	)`, d.Table(tableSurveys), d.Table(tableStudies),
			d.NullableTimestampDef(), d.NullableTimestampDef(), d.TimestampDef()),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		token TEXT PRIMARY KEY,
		blacklisted_at %s
	)`, d.Table(tableTokenBlacklist), d.TimestampDef()),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_studies_owner ON %s(owner_id)`, d.Table(tableStudies)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_surveys_study ON %s(study_id)`, d.Table(tableSurveys)),
	}
}

// InitSchema creates the metadata tables when they are missing.
func (e *Engine) InitSchema(ctx context.Context, q Execer) error {
	for _, stmt := range e.dialect.BaseSchema() {
		if _, err := e.exec(ctx, q, "", stmt); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
	}
	return nil
}
