// ABOUTME: Data point writes and reads against per-study tables.
// ABOUTME: Writes are encoded before any statement runs; reads project the study's fields.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

// Query selects data points for retrieval. At least one of StudyID and
// SurveyID must be set.
type Query struct {
	StudyID  string
	SurveyID string
	// Fields overrides the study's selected fields when non-empty.
	Fields []models.FieldName
}

// InsertDataPoint writes rec into the study's table under surveyID. The survey
// must belong to studyID. A data_point_id that already exists is a unique
// constraint violation.
func (e *Engine) InsertDataPoint(ctx context.Context, q Execer, studyID, surveyID string, rec models.Record) error {
	enc, err := e.prepareWrite(surveyID, rec)
	if err != nil {
		return err
	}
	owner, err := e.surveyStudy(ctx, q, surveyID)
	if err != nil {
		return err
	}
	if owner != studyID {
		return &SurveyNotFoundError{SurveyID: surveyID}
	}
	table, err := TableNameFor(studyID)
	if err != nil {
		return err
	}

	if _, err := e.exec(ctx, q, table, e.insertStatement(table, enc), enc.Values...); err != nil {
		return fmt.Errorf("insert data point: %w", err)
	}
	return nil
}

// SaveDataPoint inserts rec or, when its data_point_id exists, overwrites the
// provided columns. The study table is resolved from the survey.
func (e *Engine) SaveDataPoint(ctx context.Context, q Execer, surveyID string, rec models.Record) error {
	enc, err := e.prepareWrite(surveyID, rec)
	if err != nil {
		return err
	}
	studyID, err := e.surveyStudy(ctx, q, surveyID)
	if err != nil {
		return err
	}
	table, err := TableNameFor(studyID)
	if err != nil {
		return err
	}

	if _, err := e.exec(ctx, q, table, e.upsertStatement(table, enc), enc.Values...); err != nil {
		return fmt.Errorf("save data point: %w", err)
	}
	return nil
}

// GetDataPoint loads one data point of a survey, projecting the study's fields.
func (e *Engine) GetDataPoint(ctx context.Context, q Execer, surveyID, dataPointID string) (*models.DataPoint, error) {
	studyID, err := e.surveyStudy(ctx, q, surveyID)
	if err != nil {
		return nil, err
	}
	study, err := e.ReadStudyMetadata(ctx, q, studyID)
	if err != nil {
		return nil, err
	}
	table, err := TableNameFor(studyID)
	if err != nil {
		return nil, err
	}

	d := e.dialect
	where := fmt.Sprintf("%s = %s AND %s = %s",
		quoteIdent(models.ColumnDataPointID), d.Placeholder(1),
		quoteIdent(models.ColumnSurveyID), d.Placeholder(2))
	points, err := e.selectPoints(ctx, q, table, study.Fields, where, dataPointID, surveyID)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, &RowNotFoundError{Table: table, DataPointID: dataPointID}
	}
	return points[0], nil
}

// ListDataPoints returns the data points of a study or one of its surveys,
// ordered by creation date.
func (e *Engine) ListDataPoints(ctx context.Context, q Execer, qry Query) ([]*models.DataPoint, error) {
	studyID := qry.StudyID
	if qry.SurveyID != "" {
		owner, err := e.surveyStudy(ctx, q, qry.SurveyID)
		if err != nil {
			return nil, err
		}
		if studyID != "" && owner != studyID {
			return nil, &SurveyNotFoundError{SurveyID: qry.SurveyID}
		}
		studyID = owner
	}
	if studyID == "" {
		return nil, &InvalidValueError{Field: "study_id", Reason: "a study or survey is required"}
	}

	study, err := e.ReadStudyMetadata(ctx, q, studyID)
	if err != nil {
		return nil, err
	}
	fields := study.Fields
	if len(qry.Fields) > 0 {
		if err := validateFields(qry.Fields); err != nil {
			return nil, err
		}
		fields = qry.Fields
	}
	table, err := TableNameFor(studyID)
	if err != nil {
		return nil, err
	}

	var where string
	var args []any
	if qry.SurveyID != "" {
		where = quoteIdent(models.ColumnSurveyID) + " = " + e.dialect.Placeholder(1)
		args = append(args, qry.SurveyID)
	}
	return e.selectPoints(ctx, q, table, fields, where, args...)
}

// DeleteDataPoint removes one data point of a survey.
func (e *Engine) DeleteDataPoint(ctx context.Context, q Execer, surveyID, dataPointID string) error {
	studyID, err := e.surveyStudy(ctx, q, surveyID)
	if err != nil {
		return err
	}
	table, err := TableNameFor(studyID)
	if err != nil {
		return err
	}

	d := e.dialect
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND %s = %s",
		d.Table(table),
		quoteIdent(models.ColumnDataPointID), d.Placeholder(1),
		quoteIdent(models.ColumnSurveyID), d.Placeholder(2))
	res, err := e.exec(ctx, q, table, query, dataPointID, surveyID)
	if err != nil {
		return fmt.Errorf("delete data point: %w", err)
	}
	return expectOneRow(res, &RowNotFoundError{Table: table, DataPointID: dataPointID})
}

// prepareWrite binds the survey and a fresh last_updated to rec and encodes
// it. Nothing touches the store until this succeeds.
func (e *Engine) prepareWrite(surveyID string, rec models.Record) (*Encoded, error) {
	if rec == nil {
		return nil, &EncodingError{Err: &InvalidValueError{Field: "record", Reason: "nil record"}}
	}

	r := make(models.Record, len(rec)+2)
	for k, v := range rec {
		r[k] = v
	}
	r[models.ColumnSurveyID] = surveyID
	if r[models.ColumnLastUpdated] == nil {
		r[models.ColumnLastUpdated] = time.Now().UTC()
	}
	if r.DataPointID() == "" {
		return nil, &EncodingError{Err: &InvalidValueError{Field: models.ColumnDataPointID, Reason: "required"}}
	}

	enc, err := e.codec.Encode(r)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return enc, nil
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func (e *Engine) insertStatement(table string, enc *Encoded) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		e.dialect.Table(table), quoteColumns(enc.Columns), strings.Join(enc.Bindings, ", "))
}

func (e *Engine) upsertStatement(table string, enc *Encoded) string {
	var sets []string
	for _, c := range enc.Columns {
		if c == models.ColumnDataPointID {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c)))
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
		e.insertStatement(table, enc), quoteIdent(models.ColumnDataPointID), strings.Join(sets, ", "))
}

func (e *Engine) selectPoints(ctx context.Context, q Execer, table string, fields []models.FieldName, where string, args ...any) ([]*models.DataPoint, error) {
	cols, err := e.codec.Projection(fields)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), e.dialect.Table(table))
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" ORDER BY %s, %s",
		quoteIdent(models.ColumnCreationDate), quoteIdent(models.ColumnDataPointID))

	rows, err := e.query(ctx, q, table, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read data points: %w", err)
	}
	defer rows.Close()

	var points []*models.DataPoint
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan data point: %w", err)
		}
		p, err := e.codec.Decode(fields, values)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read data points: %w", err)
	}
	return points, nil
}
