// ABOUTME: Tests for the record codec.
// ABOUTME: Covers parameter accounting, geometry and array encodings, and row decoding.
package storage

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

func TestEncodeParameterAccounting(t *testing.T) {
	c := NewCodec(PostgresDialect{})

	rec := models.Record{
		"data_point_id": "d1",
		"gender":        "female",
		"location":      []float64{-79.34, 43.70},
		"activities":    []string{"commercial", "consuming"},
		"notes":         "by the fountain",
	}
	enc, err := c.Encode(rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	wantCols := []string{"data_point_id", "gender", "activities", "location", "notes"}
	if !reflect.DeepEqual(enc.Columns, wantCols) {
		t.Errorf("Columns = %v, want %v", enc.Columns, wantCols)
	}
	wantBindings := []string{"$1", "$2", "$3", "ST_SetSRID(ST_MakePoint($4, $5), 4326)", "$6"}
	if !reflect.DeepEqual(enc.Bindings, wantBindings) {
		t.Errorf("Bindings = %v, want %v", enc.Bindings, wantBindings)
	}
	if len(enc.Values) != 6 {
		t.Fatalf("expected 6 values, got %d: %v", len(enc.Values), enc.Values)
	}
	if enc.Values[2] != "{commercial,consuming}" {
		t.Errorf("array literal = %v", enc.Values[2])
	}
	if enc.Values[3] != -79.34 || enc.Values[4] != 43.70 {
		t.Errorf("coordinates = %v, %v", enc.Values[3], enc.Values[4])
	}
	if enc.NextIndex() != 7 {
		t.Errorf("NextIndex = %d, want 7", enc.NextIndex())
	}
}

func TestEncodeGeoJSONUsesOneSlot(t *testing.T) {
	c := NewCodec(SQLiteDialect{})

	rec := models.Record{
		"location": map[string]any{"type": "Point", "coordinates": []any{1.0, 2.0}},
		"notes":    "x",
	}
	enc, err := c.Encode(rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := []string{"json(?1)", "?2"}
	if !reflect.DeepEqual(enc.Bindings, want) {
		t.Errorf("Bindings = %v, want %v", enc.Bindings, want)
	}
	if len(enc.Values) != 2 {
		t.Errorf("expected 2 values, got %d", len(enc.Values))
	}
}

func TestEncodeFromOffset(t *testing.T) {
	c := NewCodec(PostgresDialect{})

	enc, err := c.EncodeFrom(models.Record{"location": []any{1.0, 2.0}, "mode": "pedestrian"}, 4)
	if err != nil {
		t.Fatalf("EncodeFrom failed: %v", err)
	}
	want := []string{"$4", "ST_SetSRID(ST_MakePoint($5, $6), 4326)"}
	if !reflect.DeepEqual(enc.Bindings, want) {
		t.Errorf("Bindings = %v, want %v", enc.Bindings, want)
	}
}

func TestEncodeSkipsNil(t *testing.T) {
	c := NewCodec(SQLiteDialect{})

	enc, err := c.Encode(models.Record{"data_point_id": "d1", "notes": nil})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(enc.Columns) != 1 || enc.Columns[0] != "data_point_id" {
		t.Errorf("Columns = %v, want [data_point_id]", enc.Columns)
	}
}

func TestEncodeHeaderTimes(t *testing.T) {
	c := NewCodec(SQLiteDialect{})
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	enc, err := c.Encode(models.Record{"creation_date": ts, "last_updated": "2024-05-01T10:00:00Z"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if enc.Values[0] != "2024-05-01T09:00:00.000000000Z" {
		t.Errorf("creation_date = %v", enc.Values[0])
	}
	if enc.Values[1] != "2024-05-01T10:00:00.000000000Z" {
		t.Errorf("last_updated = %v", enc.Values[1])
	}

	_, err = c.Encode(models.Record{"creation_date": "yesterday"})
	if !errors.Is(err, models.ErrInvalid) {
		t.Errorf("expected invalid time, got %v", err)
	}
}

func TestEncodeErrors(t *testing.T) {
	c := NewCodec(SQLiteDialect{})

	tests := []struct {
		name  string
		rec   models.Record
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown field",
			rec:  models.Record{"gender": "male", "zzz": 1, "aaa": 2},
			check: func(t *testing.T, err error) {
				var ufe *models.UnknownFieldError
				if !errors.As(err, &ufe) || ufe.Field != "aaa" {
					t.Errorf("expected UnknownFieldError for aaa, got %v", err)
				}
			},
		},
		{
			name: "null array element",
			rec:  models.Record{"activities": []any{"idle", nil}},
			check: func(t *testing.T, err error) {
				var nae *NullArrayElementError
				if !errors.As(err, &nae) || nae.Index != 1 || nae.Field != "activities" {
					t.Errorf("expected NullArrayElementError at 1, got %v", err)
				}
			},
		},
		{
			name: "reserved array character",
			rec:  models.Record{"object": []string{"a,b"}},
			check: func(t *testing.T, err error) {
				var ive *InvalidValueError
				if !errors.As(err, &ive) {
					t.Errorf("expected InvalidValueError, got %v", err)
				}
			},
		},
		{
			name: "enum not a string",
			rec:  models.Record{"gender": 3},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, models.ErrInvalid) {
					t.Errorf("expected invalid, got %v", err)
				}
			},
		},
		{
			name: "scalar not a string",
			rec:  models.Record{"notes": 42.5},
			check: func(t *testing.T, err error) {
				var ive *InvalidValueError
				if !errors.As(err, &ive) || ive.Field != "notes" {
					t.Errorf("expected InvalidValueError for notes, got %v", err)
				}
			},
		},
		{
			name: "geometry without type",
			rec:  models.Record{"location": map[string]any{"coordinates": []any{1.0, 2.0}}},
			check: func(t *testing.T, err error) {
				var ive *InvalidValueError
				if !errors.As(err, &ive) || ive.Field != "location" {
					t.Errorf("expected InvalidValueError for location, got %v", err)
				}
			},
		},
		{
			name: "empty data point id",
			rec:  models.Record{"data_point_id": ""},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, models.ErrInvalid) {
					t.Errorf("expected invalid, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Encode(tt.rec)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestProjection(t *testing.T) {
	c := NewCodec(PostgresDialect{})

	cols, err := c.Projection([]models.FieldName{models.FieldGender, models.FieldActivities, models.FieldLocation})
	if err != nil {
		t.Fatalf("Projection failed: %v", err)
	}
	want := []string{
		`"survey_id"`, `"data_point_id"`, `"creation_date"`, `"last_updated"`,
		`"gender"`,
		`array_to_json("activities")::text AS "activities"`,
		`ST_AsGeoJSON("location") AS "location"`,
	}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("Projection = %v\nwant %v", cols, want)
	}

	if _, err := c.Projection([]models.FieldName{"bogus"}); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestDecode(t *testing.T) {
	c := NewCodec(SQLiteDialect{})
	fields := []models.FieldName{models.FieldGender, models.FieldActivities, models.FieldLocation, models.FieldNotes}

	values := []any{
		"s1", "d1", "2024-05-01T09:00:00.000000000Z", []byte("2024-05-01T09:05:00Z"),
		"female",
		"{commercial,consuming}",
		`{"type":"Point","coordinates":[-79.34,43.7]}`,
		nil,
	}
	p, err := c.Decode(fields, values)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if p.ID != "d1" || p.SurveyID != "s1" {
		t.Errorf("header = %q/%q", p.ID, p.SurveyID)
	}
	if !p.CreationDate.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("CreationDate = %v", p.CreationDate)
	}
	if !reflect.DeepEqual(p.Fields[models.FieldActivities], []string{"commercial", "consuming"}) {
		t.Errorf("activities = %v", p.Fields[models.FieldActivities])
	}
	loc := p.Fields[models.FieldLocation].(map[string]any)
	if loc["type"] != "Point" {
		t.Errorf("location = %v", loc)
	}
	if _, ok := p.Fields[models.FieldNotes]; ok {
		t.Error("NULL notes should be omitted")
	}

	if _, err := c.Decode(fields, values[:3]); err == nil {
		t.Error("expected error for short row")
	}
}

func TestDecodeArrayForms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`["idle","running"]`, []string{"idle", "running"}},
		{`{idle,running}`, []string{"idle", "running"}},
		{`{}`, []string{}},
		{`[]`, []string{}},
	}
	for _, tt := range tests {
		got, err := decodeArray(tt.in)
		if err != nil {
			t.Errorf("decodeArray(%q) failed: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("decodeArray(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := decodeArray("idle"); err == nil {
		t.Error("expected error for bare text")
	}
}
