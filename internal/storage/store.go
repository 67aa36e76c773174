// ABOUTME: Repository implementation on DB.
// ABOUTME: Study creation and deletion pair metadata and table changes in one transaction.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

func (d *DB) track(op string, start time.Time, errp *error) {
	d.observe(op, start, *errp)
}

// CreateStudy stores the study metadata and provisions its table atomically.
func (d *DB) CreateStudy(ctx context.Context, s *models.Study) (err error) {
	defer d.track("create_study", time.Now(), &err)

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		if err := d.engine.CreateStudyMetadata(ctx, tx, s); err != nil {
			return err
		}
		return d.engine.Provision(ctx, tx, s.ID)
	})
	if err == nil {
		d.metrics.RecordProvision()
	}
	return err
}

// GetStudy retrieves a study by ID.
func (d *DB) GetStudy(ctx context.Context, studyID string) (s *models.Study, err error) {
	defer d.track("get_study", time.Now(), &err)
	return d.engine.ReadStudyMetadata(ctx, d.db, studyID)
}

// ListStudies lists studies, optionally restricted to one owner.
func (d *DB) ListStudies(ctx context.Context, ownerID string) (studies []*models.Study, err error) {
	defer d.track("list_studies", time.Now(), &err)
	return d.engine.ListStudyMetadata(ctx, d.db, ownerID)
}

// UpdateStudy rewrites a study's metadata.
func (d *DB) UpdateStudy(ctx context.Context, s *models.Study) (err error) {
	defer d.track("update_study", time.Now(), &err)
	return d.engine.UpdateStudyMetadata(ctx, d.db, s)
}

// UpdateStudyFields changes which fields a study displays.
func (d *DB) UpdateStudyFields(ctx context.Context, studyID string, fields []models.FieldName) (err error) {
	defer d.track("update_study_fields", time.Now(), &err)
	return d.engine.UpdateStudyFields(ctx, d.db, studyID, fields)
}

// DeleteStudy drops the study table and removes its metadata atomically. A
// study whose table is already gone is still removed.
func (d *DB) DeleteStudy(ctx context.Context, studyID string) (err error) {
	defer d.track("delete_study", time.Now(), &err)

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := d.engine.ReadStudyMetadata(ctx, tx, studyID); err != nil {
			return err
		}
		if err := d.engine.Deprovision(ctx, tx, studyID); err != nil {
			var tnf *TableNotFoundError
			if !errors.As(err, &tnf) {
				return err
			}
			d.log.Warn().Str("study_id", studyID).Msg("study table already missing")
		}
		return d.engine.DeleteStudyMetadata(ctx, tx, studyID)
	})
	if err == nil {
		d.metrics.RecordDeprovision()
	}
	return err
}

// CreateSurvey adds a survey to an existing study.
func (d *DB) CreateSurvey(ctx context.Context, sv *models.Survey) (err error) {
	defer d.track("create_survey", time.Now(), &err)
	return d.engine.CreateSurveyMetadata(ctx, d.db, sv)
}

// GetSurvey retrieves a survey by ID.
func (d *DB) GetSurvey(ctx context.Context, surveyID string) (sv *models.Survey, err error) {
	defer d.track("get_survey", time.Now(), &err)
	return d.engine.ReadSurvey(ctx, d.db, surveyID)
}

// ListSurveys lists the surveys of a study.
func (d *DB) ListSurveys(ctx context.Context, studyID string) (surveys []*models.Survey, err error) {
	defer d.track("list_surveys", time.Now(), &err)

	if _, err := d.engine.ReadStudyMetadata(ctx, d.db, studyID); err != nil {
		return nil, err
	}
	return d.engine.ListSurveys(ctx, d.db, studyID)
}

// DeleteSurvey removes a survey and its data points.
func (d *DB) DeleteSurvey(ctx context.Context, surveyID string) (err error) {
	defer d.track("delete_survey", time.Now(), &err)
	return d.engine.DeleteSurvey(ctx, d.db, surveyID)
}

// AddDataPoint inserts a new data point; an existing data_point_id conflicts.
func (d *DB) AddDataPoint(ctx context.Context, studyID, surveyID string, rec models.Record) (err error) {
	defer d.track("add_data_point", time.Now(), &err)

	if err = d.engine.InsertDataPoint(ctx, d.db, studyID, surveyID, rec); err == nil {
		d.metrics.RecordDataPointWrite("insert")
	}
	return err
}

// SaveDataPoint inserts or updates a data point.
func (d *DB) SaveDataPoint(ctx context.Context, surveyID string, rec models.Record) (err error) {
	defer d.track("save_data_point", time.Now(), &err)

	if err = d.engine.SaveDataPoint(ctx, d.db, surveyID, rec); err == nil {
		d.metrics.RecordDataPointWrite("upsert")
	}
	return err
}

// GetDataPoint retrieves one data point of a survey.
func (d *DB) GetDataPoint(ctx context.Context, surveyID, dataPointID string) (p *models.DataPoint, err error) {
	defer d.track("get_data_point", time.Now(), &err)
	return d.engine.GetDataPoint(ctx, d.db, surveyID, dataPointID)
}

// ListDataPoints retrieves data points for a study or survey.
func (d *DB) ListDataPoints(ctx context.Context, q Query) (points []*models.DataPoint, err error) {
	defer d.track("list_data_points", time.Now(), &err)
	return d.engine.ListDataPoints(ctx, d.db, q)
}

// DeleteDataPoint removes one data point of a survey.
func (d *DB) DeleteDataPoint(ctx context.Context, surveyID, dataPointID string) (err error) {
	defer d.track("delete_data_point", time.Now(), &err)
	return d.engine.DeleteDataPoint(ctx, d.db, surveyID, dataPointID)
}

// CheckParity reports mismatches between study metadata and study tables.
func (d *DB) CheckParity(ctx context.Context) (report *ParityReport, err error) {
	defer d.track("check_parity", time.Now(), &err)
	return d.engine.CheckParity(ctx, d.db)
}

// RepairParity fixes the mismatches CheckParity finds and returns what it fixed.
func (d *DB) RepairParity(ctx context.Context) (report *ParityReport, err error) {
	defer d.track("repair_parity", time.Now(), &err)

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		r, err := d.engine.CheckParity(ctx, tx)
		if err != nil {
			return err
		}
		if err := d.engine.RepairParity(ctx, tx, r); err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// BlacklistToken revokes a token.
func (d *DB) BlacklistToken(ctx context.Context, token string) (err error) {
	defer d.track("blacklist_token", time.Now(), &err)
	return d.engine.BlacklistToken(ctx, d.db, token)
}

// IsTokenBlacklisted reports whether a token was revoked.
func (d *DB) IsTokenBlacklisted(ctx context.Context, token string) (ok bool, err error) {
	defer d.track("check_token", time.Now(), &err)
	return d.engine.IsTokenBlacklisted(ctx, d.db, token)
}
