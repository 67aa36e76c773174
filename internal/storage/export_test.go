// ABOUTME: Tests for export and import functionality.
// ABOUTME: Verifies JSON and YAML round trips and CSV output.
package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
	"gopkg.in/yaml.v3"
)

// seedExport builds one study with one survey and two data points.
func seedExport(t *testing.T, db *DB) (*models.Study, *models.Survey) {
	t.Helper()
	ctx := context.Background()

	s, sv := setupStudy(t, db, "export1", models.FieldGender, models.FieldActivities, models.FieldLocation)

	recs := []models.Record{
		{
			"data_point_id": "dp-1",
			"gender":        "female",
			"activities":    []string{"idle", "pets"},
			"location":      map[string]any{"type": "Point", "coordinates": []any{-73.99, 40.73}},
		},
		{
			"data_point_id": "dp-2",
			"gender":        "male",
			"notes":         "carrying groceries",
		},
	}
	for _, rec := range recs {
		if err := db.AddDataPoint(ctx, s.ID, sv.ID, rec); err != nil {
			t.Fatalf("AddDataPoint failed: %v", err)
		}
	}
	return s, sv
}

func TestExportJSON(t *testing.T) {
	db := setupTestDB(t)
	s, sv := seedExport(t, db)

	data, err := ExportJSON(context.Background(), db)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var export ExportData
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if export.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", export.Version)
	}
	if export.Tool != "commonspace" {
		t.Errorf("Expected tool commonspace, got %s", export.Tool)
	}
	if len(export.Studies) != 1 {
		t.Fatalf("Expected 1 study, got %d", len(export.Studies))
	}
	se := export.Studies[0]
	if se.Study.ID != s.ID {
		t.Errorf("Expected study %s, got %s", s.ID, se.Study.ID)
	}
	if len(se.Surveys) != 1 || se.Surveys[0].Survey.ID != sv.ID {
		t.Fatalf("Expected survey %s, got %+v", sv.ID, se.Surveys)
	}
	points := se.Surveys[0].DataPoints
	if len(points) != 2 {
		t.Fatalf("Expected 2 data points, got %d", len(points))
	}

	// notes is not a selected field but is still exported.
	var found bool
	for _, p := range points {
		if p["notes"] == "carrying groceries" {
			found = true
		}
	}
	if !found {
		t.Error("Expected unselected notes field in export")
	}
}

func TestExportYAML(t *testing.T) {
	db := setupTestDB(t)
	seedExport(t, db)

	data, err := ExportYAML(context.Background(), db)
	if err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}

	var export ExportData
	if err := yaml.Unmarshal(data, &export); err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}
	if len(export.Studies) != 1 {
		t.Fatalf("Expected 1 study, got %d", len(export.Studies))
	}
	if !strings.Contains(string(data), "tool: commonspace") {
		t.Error("YAML should contain the tool name")
	}
}

func TestExportEmpty(t *testing.T) {
	db := setupTestDB(t)

	data, err := ExportJSON(context.Background(), db)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	var export ExportData
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if len(export.Studies) != 0 {
		t.Errorf("Expected no studies, got %d", len(export.Studies))
	}
}

func TestImportJSONRoundTrip(t *testing.T) {
	src := setupTestDB(t)
	_, sv := seedExport(t, src)
	ctx := context.Background()

	data, err := ExportJSON(ctx, src)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	dst := setupTestDB(t)
	if err := ImportJSON(ctx, dst, data); err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}

	p, err := dst.GetDataPoint(ctx, sv.ID, "dp-1")
	if err != nil {
		t.Fatalf("GetDataPoint failed: %v", err)
	}
	if p.Fields[models.FieldGender] != "female" {
		t.Errorf("gender = %v, want female", p.Fields[models.FieldGender])
	}
	acts, ok := p.Fields[models.FieldActivities].([]string)
	if !ok || len(acts) != 2 || acts[0] != "idle" || acts[1] != "pets" {
		t.Errorf("activities = %#v, want [idle pets]", p.Fields[models.FieldActivities])
	}
	loc, ok := p.Fields[models.FieldLocation].(map[string]any)
	if !ok || loc["type"] != "Point" {
		t.Errorf("location = %#v, want a Point", p.Fields[models.FieldLocation])
	}

	report, err := dst.CheckParity(ctx)
	if err != nil {
		t.Fatalf("CheckParity failed: %v", err)
	}
	if !report.OK() {
		t.Errorf("imported database out of parity: %+v", report)
	}
}

func TestImportYAMLRoundTrip(t *testing.T) {
	src := setupTestDB(t)
	_, sv := seedExport(t, src)
	ctx := context.Background()

	data, err := ExportYAML(ctx, src)
	if err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}

	dst := setupTestDB(t)
	if err := ImportYAML(ctx, dst, data); err != nil {
		t.Fatalf("ImportYAML failed: %v", err)
	}

	points, err := dst.ListDataPoints(ctx, Query{SurveyID: sv.ID, Fields: models.AllFieldNames()})
	if err != nil {
		t.Fatalf("ListDataPoints failed: %v", err)
	}
	if len(points) != 2 {
		t.Errorf("Expected 2 data points, got %d", len(points))
	}
}

func TestImportExistingStudyConflicts(t *testing.T) {
	db := setupTestDB(t)
	seedExport(t, db)
	ctx := context.Background()

	data, err := ExportJSON(ctx, db)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	err = ImportJSON(ctx, db, data)
	if !errors.Is(err, models.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestImportInvalidJSON(t *testing.T) {
	db := setupTestDB(t)
	if err := ImportJSON(context.Background(), db, []byte("{not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestExportCSV(t *testing.T) {
	db := setupTestDB(t)
	s, _ := seedExport(t, db)

	var buf bytes.Buffer
	if err := ExportCSV(context.Background(), db, Query{StudyID: s.ID}, &buf); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}

	want := []string{"data_point_id", "survey_id", "creation_date", "last_updated", "gender", "activities", "location"}
	if strings.Join(rows[0], ",") != strings.Join(want, ",") {
		t.Errorf("header = %v, want %v", rows[0], want)
	}

	first := rows[1]
	if first[0] != "dp-1" {
		t.Errorf("first row id = %s, want dp-1", first[0])
	}
	if first[5] != "idle;pets" {
		t.Errorf("activities cell = %q, want idle;pets", first[5])
	}
	if !strings.Contains(first[6], `"Point"`) {
		t.Errorf("location cell = %q, want GeoJSON", first[6])
	}
	if rows[2][5] != "" || rows[2][6] != "" {
		t.Errorf("unset cells should be empty, got %v", rows[2])
	}
}

func TestExportCSVFieldOverride(t *testing.T) {
	db := setupTestDB(t)
	_, sv := seedExport(t, db)

	var buf bytes.Buffer
	q := Query{SurveyID: sv.ID, Fields: []models.FieldName{models.FieldNotes}}
	if err := ExportCSV(context.Background(), db, q, &buf); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if !strings.Contains(buf.String(), "carrying groceries") {
		t.Errorf("expected notes column, got:\n%s", buf.String())
	}
}

func TestCSVCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{[]string{"a", "b"}, "a;b"},
		{map[string]any{"type": "Point"}, `{"type":"Point"}`},
		{42, "42"},
	}
	for _, tt := range tests {
		got, err := csvCell(tt.in)
		if err != nil {
			t.Fatalf("csvCell(%v) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("csvCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
