// ABOUTME: Tests for copying data between storage backends.
// ABOUTME: Uses two SQLite databases as source and destination.
package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

func TestMigrateData(t *testing.T) {
	src := setupTestDB(t)
	dst := setupTestDB(t)
	ctx := context.Background()

	s, sv := setupStudy(t, src, "migrate1", models.FieldGender)
	second := models.NewSurvey(s.ID, "evening")
	if err := src.CreateSurvey(ctx, second); err != nil {
		t.Fatalf("CreateSurvey failed: %v", err)
	}

	if err := src.AddDataPoint(ctx, s.ID, sv.ID, models.Record{
		"data_point_id": "m-1",
		"gender":        "unknown",
		"posture":       "sitting",
	}); err != nil {
		t.Fatalf("AddDataPoint failed: %v", err)
	}
	if err := src.AddDataPoint(ctx, s.ID, second.ID, models.Record{
		"data_point_id": "m-2",
		"location":      []float64{-73.98, 40.75},
	}); err != nil {
		t.Fatalf("AddDataPoint failed: %v", err)
	}

	summary, err := MigrateData(ctx, src, dst)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}
	if summary.Studies != 1 || summary.Surveys != 2 || summary.DataPoints != 2 {
		t.Errorf("summary = %+v, want 1 study, 2 surveys, 2 data points", summary)
	}

	got, err := dst.GetStudy(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetStudy failed: %v", err)
	}
	if got.Title != s.Title || !got.HasField(models.FieldGender) {
		t.Errorf("migrated study = %+v", got)
	}

	// posture is not selected by the study but must survive.
	points, err := dst.ListDataPoints(ctx, Query{SurveyID: sv.ID, Fields: models.AllFieldNames()})
	if err != nil {
		t.Fatalf("ListDataPoints failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("Expected 1 data point, got %d", len(points))
	}
	if points[0].Fields[models.FieldPosture] != "sitting" {
		t.Errorf("posture = %v, want sitting", points[0].Fields[models.FieldPosture])
	}

	moved, err := dst.ListDataPoints(ctx, Query{SurveyID: second.ID, Fields: []models.FieldName{models.FieldLocation}})
	if err != nil {
		t.Fatalf("ListDataPoints failed: %v", err)
	}
	if len(moved) != 1 {
		t.Fatalf("Expected 1 data point, got %d", len(moved))
	}
	if _, ok := moved[0].Fields[models.FieldLocation].(map[string]any); !ok {
		t.Errorf("location = %#v, want GeoJSON", moved[0].Fields[models.FieldLocation])
	}
}

func TestMigrateEmpty(t *testing.T) {
	src := setupTestDB(t)
	dst := setupTestDB(t)

	summary, err := MigrateData(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}
	if summary.Studies != 0 || summary.Surveys != 0 || summary.DataPoints != 0 {
		t.Errorf("summary = %+v, want zeros", summary)
	}
}

func TestMigrateIntoPopulatedDestination(t *testing.T) {
	src := setupTestDB(t)
	dst := setupTestDB(t)
	setupStudy(t, src, "shared")
	setupStudy(t, dst, "shared")

	_, err := MigrateData(context.Background(), src, dst)
	if !errors.Is(err, models.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}
