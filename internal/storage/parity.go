// ABOUTME: Parity sweep between study metadata rows and provisioned study tables.
// ABOUTME: Reports studies without tables and tables without studies.
package storage

import (
	"context"
	"fmt"
	"sort"
)

// ParityReport lists the mismatches found by CheckParity.
type ParityReport struct {
	// MissingTables holds ids of studies whose table is absent.
	MissingTables []string `json:"missing_tables"`
	// OrphanTables holds study tables with no matching study row.
	OrphanTables []string `json:"orphan_tables"`
}

// OK reports whether metadata and tables agree.
func (r *ParityReport) OK() bool {
	return len(r.MissingTables) == 0 && len(r.OrphanTables) == 0
}

// CheckParity compares the studies table against the provisioned tables.
func (e *Engine) CheckParity(ctx context.Context, q Execer) (*ParityReport, error) {
	studies, err := e.ListStudyMetadata(ctx, q, "")
	if err != nil {
		return nil, fmt.Errorf("check parity: %w", err)
	}
	tables, err := e.studyTables(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("check parity: %w", err)
	}

	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = true
	}

	report := &ParityReport{MissingTables: []string{}, OrphanTables: []string{}}
	claimed := make(map[string]bool, len(studies))
	for _, s := range studies {
		table, err := TableNameFor(s.ID)
		if err != nil {
			return nil, fmt.Errorf("check parity: %w", err)
		}
		claimed[table] = true
		if !present[table] {
			report.MissingTables = append(report.MissingTables, s.ID)
		}
	}
	for _, t := range tables {
		if !claimed[t] {
			report.OrphanTables = append(report.OrphanTables, t)
		}
	}
	sort.Strings(report.MissingTables)
	sort.Strings(report.OrphanTables)
	return report, nil
}

// RepairParity provisions the tables listed in report.MissingTables and
// drops report.OrphanTables. Table names that do not look like study tables
// are left alone.
func (e *Engine) RepairParity(ctx context.Context, q Execer, report *ParityReport) error {
	for _, studyID := range report.MissingTables {
		if err := e.Provision(ctx, q, studyID); err != nil {
			return fmt.Errorf("repair parity: %w", err)
		}
	}
	for _, table := range report.OrphanTables {
		if !isStudyTableName(table) {
			e.log.Warn().Str("table", table).Msg("skipping table with unexpected name")
			continue
		}
		if err := e.dropTable(ctx, q, table); err != nil {
			return fmt.Errorf("repair parity: %w", err)
		}
	}
	return nil
}
