// ABOUTME: Sparse data point records submitted by surveyors.
// ABOUTME: Record is the wire shape; DataPoint is the decoded row of a study table.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Header columns present in every study table ahead of the catalog columns.
const (
	ColumnSurveyID     = "survey_id"
	ColumnDataPointID  = "data_point_id"
	ColumnCreationDate = "creation_date"
	ColumnLastUpdated  = "last_updated"
)

var headerColumns = []string{ColumnSurveyID, ColumnDataPointID, ColumnCreationDate, ColumnLastUpdated}

// HeaderColumns returns the fixed study table header in table order.
func HeaderColumns() []string {
	return append([]string(nil), headerColumns...)
}

// IsHeaderColumn reports whether s is one of the fixed header columns.
func IsHeaderColumn(s string) bool {
	for _, h := range headerColumns {
		if h == s {
			return true
		}
	}
	return false
}

// Record is a sparse observation keyed by header column or catalog field name.
type Record map[string]any

// NewRecord creates a Record carrying a generated data point id.
func NewRecord() Record {
	return Record{ColumnDataPointID: uuid.New().String()}
}

// DataPointID returns the record's data_point_id when it is a non-empty string.
func (r Record) DataPointID() string {
	if s, ok := r[ColumnDataPointID].(string); ok {
		return s
	}
	return ""
}

// DataPoint is one decoded row of a study table.
type DataPoint struct {
	ID           string
	SurveyID     string
	CreationDate time.Time
	LastUpdated  time.Time
	Fields       map[FieldName]any
}

// Record flattens the data point into its wire shape. Unset fields are omitted.
func (p *DataPoint) Record() Record {
	r := Record{
		ColumnDataPointID:  p.ID,
		ColumnSurveyID:     p.SurveyID,
		ColumnCreationDate: p.CreationDate.UTC().Format(time.RFC3339Nano),
		ColumnLastUpdated:  p.LastUpdated.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range p.Fields {
		r[string(k)] = v
	}
	return r
}

// MarshalJSON encodes the flattened record.
func (p *DataPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Record())
}

// MarshalYAML encodes the flattened record.
func (p *DataPoint) MarshalYAML() (any, error) {
	return map[string]any(p.Record()), nil
}
