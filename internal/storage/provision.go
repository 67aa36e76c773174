// ABOUTME: Creates and drops the per-study tables.
// ABOUTME: Every study table carries the full field catalog regardless of the study's selection.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

// CreateTableStatements renders the DDL that provisions the table for studyID.
func (e *Engine) CreateTableStatements(studyID string) ([]string, error) {
	table, err := TableNameFor(studyID)
	if err != nil {
		return nil, err
	}
	return e.createTableStatements(table), nil
}

func (e *Engine) createTableStatements(table string) []string {
	d := e.dialect
	cols := []string{
		fmt.Sprintf("%s TEXT NOT NULL REFERENCES %s(survey_id) ON DELETE CASCADE",
			quoteIdent(models.ColumnSurveyID), d.Table(tableSurveys)),
		quoteIdent(models.ColumnDataPointID) + " TEXT PRIMARY KEY",
		quoteIdent(models.ColumnCreationDate) + " " + d.TimestampDef(),
		quoteIdent(models.ColumnLastUpdated) + " " + d.TimestampDef(),
	}
	for _, f := range models.AllFields() {
		cols = append(cols, d.ColumnDef(f))
	}

	return []string{
		fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", d.Table(table), strings.Join(cols, ",\n\t")),
		fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			quoteIdent(table+"_sidx"), d.Table(table), quoteIdent(models.ColumnSurveyID)),
	}
}

// Provision creates the table backing studyID.
func (e *Engine) Provision(ctx context.Context, q Execer, studyID string) error {
	table, err := TableNameFor(studyID)
	if err != nil {
		return err
	}

	exists, err := e.tableExists(ctx, q, table)
	if err != nil {
		return fmt.Errorf("provision %s: %w", table, err)
	}
	if exists {
		return &TableAlreadyExistsError{Table: table}
	}

	for _, stmt := range e.createTableStatements(table) {
		if _, err := e.exec(ctx, q, table, stmt); err != nil {
			return fmt.Errorf("provision %s: %w", table, err)
		}
	}

	e.log.Info().Str("study_id", studyID).Str("table", table).Msg("provisioned study table")
	return nil
}

// Deprovision drops the table backing studyID.
func (e *Engine) Deprovision(ctx context.Context, q Execer, studyID string) error {
	table, err := TableNameFor(studyID)
	if err != nil {
		return err
	}
	return e.dropTable(ctx, q, table)
}

func (e *Engine) dropTable(ctx context.Context, q Execer, table string) error {
	exists, err := e.tableExists(ctx, q, table)
	if err != nil {
		return fmt.Errorf("deprovision %s: %w", table, err)
	}
	if !exists {
		return &TableNotFoundError{Table: table}
	}

	if _, err := e.exec(ctx, q, table, "DROP TABLE "+e.dialect.Table(table)); err != nil {
		return fmt.Errorf("deprovision %s: %w", table, err)
	}

	e.log.Info().Str("table", table).Msg("dropped study table")
	return nil
}

// TableExists reports whether the table backing studyID has been provisioned.
func (e *Engine) TableExists(ctx context.Context, q Execer, studyID string) (bool, error) {
	table, err := TableNameFor(studyID)
	if err != nil {
		return false, err
	}
	return e.tableExists(ctx, q, table)
}

func (e *Engine) tableExists(ctx context.Context, q Execer, table string) (bool, error) {
	query := e.dialect.TableExistsQuery()
	var n int
	if err := q.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, e.fail(err, table, query, []any{table})
	}
	return n > 0, nil
}

// studyTables lists every provisioned study table.
func (e *Engine) studyTables(ctx context.Context, q Execer) ([]string, error) {
	query := e.dialect.StudyTablesQuery()
	rows, err := e.query(ctx, q, "", query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
