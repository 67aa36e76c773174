// ABOUTME: Repository interface for commonspace study storage.
// ABOUTME: Defines the contract for studies, surveys, data points, and maintenance.
package storage

import (
	"context"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

// Repository defines the storage interface for study data.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// Study operations
	CreateStudy(ctx context.Context, s *models.Study) error
	GetStudy(ctx context.Context, studyID string) (*models.Study, error)
	ListStudies(ctx context.Context, ownerID string) ([]*models.Study, error)
	UpdateStudy(ctx context.Context, s *models.Study) error
	UpdateStudyFields(ctx context.Context, studyID string, fields []models.FieldName) error
	DeleteStudy(ctx context.Context, studyID string) error

	// Survey operations
	CreateSurvey(ctx context.Context, sv *models.Survey) error
	GetSurvey(ctx context.Context, surveyID string) (*models.Survey, error)
	ListSurveys(ctx context.Context, studyID string) ([]*models.Survey, error)
	DeleteSurvey(ctx context.Context, surveyID string) error

	// Data point operations
	AddDataPoint(ctx context.Context, studyID, surveyID string, rec models.Record) error
	SaveDataPoint(ctx context.Context, surveyID string, rec models.Record) error
	GetDataPoint(ctx context.Context, surveyID, dataPointID string) (*models.DataPoint, error)
	ListDataPoints(ctx context.Context, q Query) ([]*models.DataPoint, error)
	DeleteDataPoint(ctx context.Context, surveyID, dataPointID string) error

	// Maintenance
	CheckParity(ctx context.Context) (*ParityReport, error)
	RepairParity(ctx context.Context) (*ParityReport, error)
	BlacklistToken(ctx context.Context, token string) error
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)

	// Export/Import
	GetAllData(ctx context.Context) (*ExportData, error)
	ImportData(ctx context.Context, data *ExportData) error

	// Lifecycle
	Close() error
}

var _ Repository = (*DB)(nil)
