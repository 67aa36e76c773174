// ABOUTME: Survey CRUD operations against the surveys table.
// ABOUTME: Surveys resolve data point writes to their study's table.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

const surveyColumns = `survey_id, study_id, title, location_id, surveyor_email, method, start_date, end_date, created_at`

// CreateSurveyMetadata inserts a survey row. The study must exist.
func (e *Engine) CreateSurveyMetadata(ctx context.Context, q Execer, sv *models.Survey) error {
	if strings.TrimSpace(sv.ID) == "" {
		return &InvalidValueError{Field: "survey_id", Reason: "required"}
	}
	if sv.Method == "" {
		sv.Method = "analog"
	}
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		e.dialect.Table(tableSurveys), surveyColumns, e.placeholders(1, 9))
	_, err := e.exec(ctx, q, tableSurveys, query,
		sv.ID,
		sv.StudyID,
		nullString(sv.Title),
		nullString(sv.LocationID),
		nullString(sv.SurveyorEmail),
		sv.Method,
		e.optionalTime(sv.StartDate),
		e.optionalTime(sv.EndDate),
		e.dialect.TimeValue(sv.CreatedAt),
	)
	if err != nil {
		var ce *ConstraintError
		if errors.As(err, &ce) && ce.Kind == ConstraintForeignKey {
			return &StudyNotFoundError{StudyID: sv.StudyID}
		}
		return fmt.Errorf("create survey: %w", err)
	}
	return nil
}

// ReadSurvey loads one survey.
func (e *Engine) ReadSurvey(ctx context.Context, q Execer, surveyID string) (*models.Survey, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE survey_id = %s`,
		surveyColumns, e.dialect.Table(tableSurveys), e.dialect.Placeholder(1))

	sv, err := scanSurvey(q.QueryRowContext(ctx, query, surveyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &SurveyNotFoundError{SurveyID: surveyID}
		}
		return nil, e.fail(err, tableSurveys, query, []any{surveyID})
	}
	return sv, nil
}

// ListSurveys lists a study's surveys oldest first.
func (e *Engine) ListSurveys(ctx context.Context, q Execer, studyID string) ([]*models.Survey, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE study_id = %s ORDER BY created_at, survey_id`,
		surveyColumns, e.dialect.Table(tableSurveys), e.dialect.Placeholder(1))

	rows, err := e.query(ctx, q, tableSurveys, query, studyID)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	defer rows.Close()

	var surveys []*models.Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("list surveys: %w", err)
		}
		surveys = append(surveys, sv)
	}
	return surveys, rows.Err()
}

// DeleteSurvey removes a survey. Its data points cascade.
func (e *Engine) DeleteSurvey(ctx context.Context, q Execer, surveyID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE survey_id = %s`,
		e.dialect.Table(tableSurveys), e.dialect.Placeholder(1))
	res, err := e.exec(ctx, q, tableSurveys, query, surveyID)
	if err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	return expectOneRow(res, &SurveyNotFoundError{SurveyID: surveyID})
}

// surveyStudy resolves the study a survey belongs to.
func (e *Engine) surveyStudy(ctx context.Context, q Execer, surveyID string) (string, error) {
	query := fmt.Sprintf(`SELECT study_id FROM %s WHERE survey_id = %s`,
		e.dialect.Table(tableSurveys), e.dialect.Placeholder(1))

	var studyID string
	if err := q.QueryRowContext(ctx, query, surveyID).Scan(&studyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &SurveyNotFoundError{SurveyID: surveyID}
		}
		return "", e.fail(err, tableSurveys, query, []any{surveyID})
	}
	return studyID, nil
}

func (e *Engine) optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return e.dialect.TimeValue(*t)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanSurvey(row rowScanner) (*models.Survey, error) {
	var sv models.Survey
	var title, locationID, surveyorEmail sql.NullString
	var startDate, endDate, createdAt any

	err := row.Scan(&sv.ID, &sv.StudyID, &title, &locationID, &surveyorEmail, &sv.Method,
		&startDate, &endDate, &createdAt)
	if err != nil {
		return nil, err
	}

	sv.Title = title.String
	sv.LocationID = locationID.String
	sv.SurveyorEmail = surveyorEmail.String

	if startDate != nil {
		t, err := parseTimeValue(startDate)
		if err != nil {
			return nil, fmt.Errorf("decode start_date: %w", err)
		}
		sv.StartDate = &t
	}
	if endDate != nil {
		t, err := parseTimeValue(endDate)
		if err != nil {
			return nil, fmt.Errorf("decode end_date: %w", err)
		}
		sv.EndDate = &t
	}
	if sv.CreatedAt, err = parseTimeValue(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	return &sv, nil
}
