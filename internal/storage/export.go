// ABOUTME: Export and import functionality for study data.
// ABOUTME: Supports JSON and YAML full exports and per-study CSV exports.
package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for study data.
type ExportData struct {
	Version    string         `json:"version" yaml:"version"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Tool       string         `json:"tool" yaml:"tool"`
	Studies    []*StudyExport `json:"studies" yaml:"studies"`
}

// StudyExport is one study with its surveys.
type StudyExport struct {
	Study   *models.Study   `json:"study" yaml:"study"`
	Surveys []*SurveyExport `json:"surveys" yaml:"surveys"`
}

// SurveyExport is one survey with its data points. Data points carry every
// stored field, not only the study's displayed selection.
type SurveyExport struct {
	Survey     *models.Survey  `json:"survey" yaml:"survey"`
	DataPoints []models.Record `json:"data_points" yaml:"data_points"`
}

// GetAllData retrieves all data for export.
func (d *DB) GetAllData(ctx context.Context) (*ExportData, error) {
	return collectExport(ctx, d)
}

// ImportData imports data from an export. Studies must not already exist.
func (d *DB) ImportData(ctx context.Context, data *ExportData) error {
	return applyImport(ctx, d, data)
}

func collectExport(ctx context.Context, r Repository) (*ExportData, error) {
	studies, err := r.ListStudies(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}

	out := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Tool:       "commonspace",
		Studies:    make([]*StudyExport, 0, len(studies)),
	}

	for _, s := range studies {
		se := &StudyExport{Study: s, Surveys: []*SurveyExport{}}

		surveys, err := r.ListSurveys(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("list surveys of %s: %w", s.ID, err)
		}
		for _, sv := range surveys {
			points, err := r.ListDataPoints(ctx, Query{SurveyID: sv.ID, Fields: models.AllFieldNames()})
			if err != nil {
				return nil, fmt.Errorf("list data points of %s: %w", sv.ID, err)
			}
			records := make([]models.Record, len(points))
			for i, p := range points {
				records[i] = p.Record()
			}
			se.Surveys = append(se.Surveys, &SurveyExport{Survey: sv, DataPoints: records})
		}
		out.Studies = append(out.Studies, se)
	}

	return out, nil
}

func applyImport(ctx context.Context, r Repository, data *ExportData) error {
	for _, se := range data.Studies {
		if se.Study == nil {
			continue
		}
		if err := r.CreateStudy(ctx, se.Study); err != nil {
			return fmt.Errorf("import study %s: %w", se.Study.ID, err)
		}
		for _, sve := range se.Surveys {
			if sve.Survey == nil {
				continue
			}
			sve.Survey.StudyID = se.Study.ID
			if err := r.CreateSurvey(ctx, sve.Survey); err != nil {
				return fmt.Errorf("import survey %s: %w", sve.Survey.ID, err)
			}
			for _, rec := range sve.DataPoints {
				if err := r.SaveDataPoint(ctx, sve.Survey.ID, rec); err != nil {
					return fmt.Errorf("import data point %s: %w", rec.DataPointID(), err)
				}
			}
		}
	}
	return nil
}

// ExportJSON exports all data as JSON.
func ExportJSON(ctx context.Context, r Repository) ([]byte, error) {
	data, err := r.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data as YAML.
func ExportYAML(ctx context.Context, r Repository) ([]byte, error) {
	data, err := r.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(data)
}

// ImportJSON imports data from JSON bytes.
func ImportJSON(ctx context.Context, r Repository, data []byte) error {
	var exportData ExportData
	if err := json.Unmarshal(data, &exportData); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return r.ImportData(ctx, &exportData)
}

// ImportYAML imports data from YAML bytes.
func ImportYAML(ctx context.Context, r Repository, data []byte) error {
	var exportData ExportData
	if err := yaml.Unmarshal(data, &exportData); err != nil {
		return fmt.Errorf("unmarshal YAML: %w", err)
	}
	return r.ImportData(ctx, &exportData)
}

// ExportCSV writes the data points matched by q as CSV. Columns follow the
// projected fields; arrays are joined with ';' and geometry is GeoJSON.
func ExportCSV(ctx context.Context, r Repository, q Query, w io.Writer) error {
	points, err := r.ListDataPoints(ctx, q)
	if err != nil {
		return err
	}

	fields := q.Fields
	if len(fields) == 0 {
		studyID := q.StudyID
		if studyID == "" {
			sv, err := r.GetSurvey(ctx, q.SurveyID)
			if err != nil {
				return err
			}
			studyID = sv.StudyID
		}
		s, err := r.GetStudy(ctx, studyID)
		if err != nil {
			return err
		}
		fields = s.Fields
	}

	cw := csv.NewWriter(w)
	header := []string{
		models.ColumnDataPointID, models.ColumnSurveyID,
		models.ColumnCreationDate, models.ColumnLastUpdated,
	}
	for _, f := range fields {
		header = append(header, string(f))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range points {
		row := []string{
			p.ID, p.SurveyID,
			p.CreationDate.Format(time.RFC3339Nano),
			p.LastUpdated.Format(time.RFC3339Nano),
		}
		for _, f := range fields {
			cell, err := csvCell(p.Fields[f])
			if err != nil {
				return fmt.Errorf("format %s: %w", f, err)
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvCell(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []string:
		return strings.Join(t, ";"), nil
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprint(t), nil
	}
}
