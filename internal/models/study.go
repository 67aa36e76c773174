// ABOUTME: Study and Survey models for field-data collection campaigns.
// ABOUTME: A study selects catalog fields; surveys anchor the data points collected for it.
package models

import (
	"time"

	"github.com/google/uuid"
)

// StudyStatus is the lifecycle state of a study.
type StudyStatus string

const (
	StudyActive    StudyStatus = "active"
	StudyCompleted StudyStatus = "completed"
)

// StudyType distinguishes how observations are collected.
type StudyType string

const (
	StudyStationary StudyType = "stationary"
	StudyMovement   StudyType = "movement"
)

// Study represents one survey campaign with its selected fields.
type Study struct {
	ID              string         `json:"study_id" yaml:"study_id"`
	Title           string         `json:"title" yaml:"title"`
	OwnerID         string         `json:"owner_id" yaml:"owner_id"`
	Type            StudyType      `json:"type" yaml:"type"`
	Status          StudyStatus    `json:"status" yaml:"status"`
	ProtocolVersion string         `json:"protocol_version" yaml:"protocol_version"`
	Description     *string        `json:"description,omitempty" yaml:"description,omitempty"`
	Map             map[string]any `json:"map,omitempty" yaml:"map,omitempty"`
	Fields          []FieldName    `json:"fields" yaml:"fields"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at"`
	LastUpdated     time.Time      `json:"last_updated" yaml:"last_updated"`
}

// NewStudy creates an active stationary Study with a generated UUID.
func NewStudy(title, ownerID string, fields ...FieldName) *Study {
	now := time.Now().UTC()
	return &Study{
		ID:              uuid.New().String(),
		Title:           title,
		OwnerID:         ownerID,
		Type:            StudyStationary,
		Status:          StudyActive,
		ProtocolVersion: "1.0",
		Fields:          fields,
		CreatedAt:       now,
		LastUpdated:     now,
	}
}

// WithDescription sets the study description.
func (s *Study) WithDescription(desc string) *Study {
	s.Description = &desc
	return s
}

// WithMap sets the GeoJSON study area.
func (s *Study) WithMap(m map[string]any) *Study {
	s.Map = m
	return s
}

// WithType sets the study type.
func (s *Study) WithType(t StudyType) *Study {
	s.Type = t
	return s
}

// HasField reports whether the study selected f.
func (s *Study) HasField(f FieldName) bool {
	for _, sf := range s.Fields {
		if sf == f {
			return true
		}
	}
	return false
}

// Survey binds a study to a location, a time window and a surveyor.
type Survey struct {
	ID            string     `json:"survey_id" yaml:"survey_id"`
	StudyID       string     `json:"study_id" yaml:"study_id"`
	Title         string     `json:"title,omitempty" yaml:"title,omitempty"`
	LocationID    string     `json:"location_id,omitempty" yaml:"location_id,omitempty"`
	SurveyorEmail string     `json:"surveyor_email,omitempty" yaml:"surveyor_email,omitempty"`
	Method        string     `json:"method,omitempty" yaml:"method,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
}

// NewSurvey creates a Survey for studyID with a generated UUID.
func NewSurvey(studyID, title string) *Survey {
	return &Survey{
		ID:        uuid.New().String(),
		StudyID:   studyID,
		Title:     title,
		Method:    "analog",
		CreatedAt: time.Now().UTC(),
	}
}

// WithWindow sets the survey time window.
func (s *Survey) WithWindow(start, end time.Time) *Survey {
	s.StartDate = &start
	s.EndDate = &end
	return s
}

// WithSurveyor assigns the surveyor identity.
func (s *Survey) WithSurveyor(email string) *Survey {
	s.SurveyorEmail = email
	return s
}

// WithLocation sets the surveyed location.
func (s *Survey) WithLocation(locationID string) *Survey {
	s.LocationID = locationID
	return s
}
