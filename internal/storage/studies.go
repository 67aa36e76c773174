// ABOUTME: Study metadata CRUD against the studies table.
// ABOUTME: Field selections and study maps are stored as JSON text.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

const studyColumns = `study_id, title, owner_id, type, status, protocol_version, description, map, fields, created_at, last_updated`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// placeholders renders n comma-separated bindings starting at start.
func (e *Engine) placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = e.dialect.Placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

// CreateStudyMetadata inserts the metadata row for s and fills in its
// timestamps. It does not provision the study table.
func (e *Engine) CreateStudyMetadata(ctx context.Context, q Execer, s *models.Study) error {
	if _, err := TableNameFor(s.ID); err != nil {
		return err
	}
	if strings.TrimSpace(s.Title) == "" {
		return &InvalidValueError{Field: "title", Reason: "required"}
	}
	if s.Type == "" {
		s.Type = models.StudyStationary
	}
	if s.Status == "" {
		s.Status = models.StudyActive
	}
	if s.ProtocolVersion == "" {
		s.ProtocolVersion = "1.0"
	}

	fields, mapText, err := encodeStudyJSON(s)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.LastUpdated.IsZero() {
		s.LastUpdated = now
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		e.dialect.Table(tableStudies), studyColumns, e.placeholders(1, 11))
	_, err = e.exec(ctx, q, tableStudies, query,
		s.ID,
		s.Title,
		s.OwnerID,
		string(s.Type),
		string(s.Status),
		s.ProtocolVersion,
		s.Description,
		mapText,
		fields,
		e.dialect.TimeValue(s.CreatedAt),
		e.dialect.TimeValue(s.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("create study: %w", err)
	}
	return nil
}

// ReadStudyMetadata loads one study.
func (e *Engine) ReadStudyMetadata(ctx context.Context, q Execer, studyID string) (*models.Study, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE study_id = %s`,
		studyColumns, e.dialect.Table(tableStudies), e.dialect.Placeholder(1))

	s, err := scanStudy(q.QueryRowContext(ctx, query, studyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &StudyNotFoundError{StudyID: studyID}
		}
		return nil, e.fail(err, tableStudies, query, []any{studyID})
	}
	return s, nil
}

// ListStudyMetadata lists studies oldest first. An empty ownerID lists all.
func (e *Engine) ListStudyMetadata(ctx context.Context, q Execer, ownerID string) ([]*models.Study, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, studyColumns, e.dialect.Table(tableStudies))
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = ` + e.dialect.Placeholder(1)
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at, study_id`

	rows, err := e.query(ctx, q, tableStudies, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()

	var studies []*models.Study
	for rows.Next() {
		s, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("list studies: %w", err)
		}
		studies = append(studies, s)
	}
	return studies, rows.Err()
}

// UpdateStudyMetadata rewrites the mutable columns of s.
func (e *Engine) UpdateStudyMetadata(ctx context.Context, q Execer, s *models.Study) error {
	if strings.TrimSpace(s.Title) == "" {
		return &InvalidValueError{Field: "title", Reason: "required"}
	}
	fields, mapText, err := encodeStudyJSON(s)
	if err != nil {
		return err
	}
	s.LastUpdated = time.Now().UTC()

	d := e.dialect
	query := fmt.Sprintf(`UPDATE %s SET title = %s, type = %s, status = %s, protocol_version = %s,
		description = %s, map = %s, fields = %s, last_updated = %s WHERE study_id = %s`,
		d.Table(tableStudies), d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4),
		d.Placeholder(5), d.Placeholder(6), d.Placeholder(7), d.Placeholder(8), d.Placeholder(9))

	res, err := e.exec(ctx, q, tableStudies, query,
		s.Title, string(s.Type), string(s.Status), s.ProtocolVersion,
		s.Description, mapText, fields, d.TimeValue(s.LastUpdated), s.ID)
	if err != nil {
		return fmt.Errorf("update study: %w", err)
	}
	return expectOneRow(res, &StudyNotFoundError{StudyID: s.ID})
}

// UpdateStudyFields replaces the study's displayed field selection. The
// study table already carries every catalog column, so no DDL runs.
func (e *Engine) UpdateStudyFields(ctx context.Context, q Execer, studyID string, fields []models.FieldName) error {
	if err := validateFields(fields); err != nil {
		return err
	}
	encoded, err := json.Marshal(nonNilFields(fields))
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	d := e.dialect
	query := fmt.Sprintf(`UPDATE %s SET fields = %s, last_updated = %s WHERE study_id = %s`,
		d.Table(tableStudies), d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
	res, err := e.exec(ctx, q, tableStudies, query, string(encoded), d.TimeValue(time.Now()), studyID)
	if err != nil {
		return fmt.Errorf("update study fields: %w", err)
	}
	return expectOneRow(res, &StudyNotFoundError{StudyID: studyID})
}

// DeleteStudyMetadata removes the study row. Surveys cascade.
func (e *Engine) DeleteStudyMetadata(ctx context.Context, q Execer, studyID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE study_id = %s`,
		e.dialect.Table(tableStudies), e.dialect.Placeholder(1))
	res, err := e.exec(ctx, q, tableStudies, query, studyID)
	if err != nil {
		return fmt.Errorf("delete study: %w", err)
	}
	return expectOneRow(res, &StudyNotFoundError{StudyID: studyID})
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func validateFields(fields []models.FieldName) error {
	for _, f := range fields {
		if !models.IsValidField(string(f)) {
			return &models.UnknownFieldError{Field: string(f)}
		}
	}
	return nil
}

func nonNilFields(fields []models.FieldName) []models.FieldName {
	if fields == nil {
		return []models.FieldName{}
	}
	return fields
}

func encodeStudyJSON(s *models.Study) (fields string, mapText *string, err error) {
	if err := validateFields(s.Fields); err != nil {
		return "", nil, err
	}
	f, err := json.Marshal(nonNilFields(s.Fields))
	if err != nil {
		return "", nil, fmt.Errorf("encode fields: %w", err)
	}
	if s.Map != nil {
		m, err := json.Marshal(s.Map)
		if err != nil {
			return "", nil, fmt.Errorf("encode map: %w", err)
		}
		text := string(m)
		mapText = &text
	}
	return string(f), mapText, nil
}

func scanStudy(row rowScanner) (*models.Study, error) {
	var s models.Study
	var studyType, status, fields string
	var description, mapText sql.NullString
	var createdAt, lastUpdated any

	err := row.Scan(&s.ID, &s.Title, &s.OwnerID, &studyType, &status, &s.ProtocolVersion,
		&description, &mapText, &fields, &createdAt, &lastUpdated)
	if err != nil {
		return nil, err
	}

	s.Type = models.StudyType(studyType)
	s.Status = models.StudyStatus(status)
	if description.Valid {
		s.Description = &description.String
	}
	if mapText.Valid && mapText.String != "" {
		if err := json.Unmarshal([]byte(mapText.String), &s.Map); err != nil {
			return nil, fmt.Errorf("decode map: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(fields), &s.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if s.CreatedAt, err = parseTimeValue(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if s.LastUpdated, err = parseTimeValue(lastUpdated); err != nil {
		return nil, fmt.Errorf("decode last_updated: %w", err)
	}
	return &s, nil
}
