// ABOUTME: MCP tool implementations for studies, surveys, and data points.
// ABOUTME: Each tool validates its input and delegates to the storage Repository.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sidewalklabs/commonspace-sub000/internal/models"
	"github.com/sidewalklabs/commonspace-sub000/internal/storage"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_fields",
		Description: "List the observation fields a study can select",
	}, s.handleListFields)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_study",
		Description: "Create a study and provision its data table",
	}, s.handleCreateStudy)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_studies",
		Description: "List studies, optionally for one owner",
	}, s.handleListStudies)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_study_fields",
		Description: "Change which fields a study displays",
	}, s.handleUpdateStudyFields)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_study",
		Description: "Delete a study, its surveys, and its data table",
	}, s.handleDeleteStudy)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_survey",
		Description: "Create a survey under a study",
	}, s.handleCreateSurvey)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_data_point",
		Description: "Insert a new data point; fails if the data_point_id exists",
	}, s.handleAddDataPoint)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "save_data_point",
		Description: "Insert or update a data point; only provided fields change",
	}, s.handleSaveDataPoint)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_data_points",
		Description: "List data points of a study or survey projected onto the study's fields",
	}, s.handleListDataPoints)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_data_point",
		Description: "Delete one data point of a survey",
	}, s.handleDeleteDataPoint)
}

// Tool input/output types

type listFieldsInput struct{}

type fieldInfo struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Values []string `json:"values,omitempty"`
}

type fieldsOutput struct {
	Fields []fieldInfo `json:"fields"`
}

type createStudyInput struct {
	Title       string   `json:"title" jsonschema:"Study title"`
	OwnerID     string   `json:"owner_id" jsonschema:"Owner identifier"`
	Fields      []string `json:"fields,omitempty" jsonschema:"Catalog fields the study selects"`
	StudyID     string   `json:"study_id,omitempty" jsonschema:"Study id, generated when empty"`
	Description string   `json:"description,omitempty" jsonschema:"Optional description"`
	Type        string   `json:"type,omitempty" jsonschema:"stationary or movement"`
}

type studyOutput struct {
	StudyID string   `json:"study_id"`
	Table   string   `json:"table"`
	Fields  []string `json:"fields"`
	Message string   `json:"message"`
}

type listStudiesInput struct {
	OwnerID string `json:"owner_id,omitempty" jsonschema:"Only studies of this owner"`
}

type updateStudyFieldsInput struct {
	StudyID string   `json:"study_id" jsonschema:"Study id"`
	Fields  []string `json:"fields" jsonschema:"New field selection"`
}

type studyIDInput struct {
	StudyID string `json:"study_id" jsonschema:"Study id"`
}

type createSurveyInput struct {
	StudyID       string `json:"study_id" jsonschema:"Study the survey belongs to"`
	Title         string `json:"title,omitempty" jsonschema:"Survey title"`
	LocationID    string `json:"location_id,omitempty" jsonschema:"Surveyed location"`
	SurveyorEmail string `json:"surveyor_email,omitempty" jsonschema:"Surveyor identity"`
}

type surveyOutput struct {
	SurveyID string `json:"survey_id"`
	StudyID  string `json:"study_id"`
	Message  string `json:"message"`
}

type addDataPointInput struct {
	StudyID   string         `json:"study_id" jsonschema:"Study the survey belongs to"`
	SurveyID  string         `json:"survey_id" jsonschema:"Survey collecting the data point"`
	DataPoint map[string]any `json:"data_point" jsonschema:"Sparse record keyed by field name; data_point_id is generated when absent"`
}

type saveDataPointInput struct {
	SurveyID  string         `json:"survey_id" jsonschema:"Survey collecting the data point"`
	DataPoint map[string]any `json:"data_point" jsonschema:"Sparse record keyed by field name including data_point_id"`
}

type dataPointOutput struct {
	DataPointID string `json:"data_point_id"`
	Message     string `json:"message"`
}

type listDataPointsInput struct {
	StudyID  string   `json:"study_id,omitempty" jsonschema:"Study to read"`
	SurveyID string   `json:"survey_id,omitempty" jsonschema:"Survey to read"`
	Fields   []string `json:"fields,omitempty" jsonschema:"Projection override, defaults to the study's fields"`
}

type dataPointsOutput struct {
	Count      int             `json:"count"`
	DataPoints []models.Record `json:"data_points"`
}

type deleteDataPointInput struct {
	SurveyID    string `json:"survey_id" jsonschema:"Survey of the data point"`
	DataPointID string `json:"data_point_id" jsonschema:"Data point id"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

func fieldNames(fields []models.FieldName) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// Tool handlers

func (s *Server) handleListFields(ctx context.Context, req *mcp.CallToolRequest, input listFieldsInput) (*mcp.CallToolResult, fieldsOutput, error) {
	return nil, catalogOutput(), nil
}

func catalogOutput() fieldsOutput {
	var out fieldsOutput
	for _, d := range models.AllFields() {
		out.Fields = append(out.Fields, fieldInfo{Name: string(d.Name), Type: d.ColumnType.String(), Values: d.Values})
	}
	return out
}

func (s *Server) handleCreateStudy(ctx context.Context, req *mcp.CallToolRequest, input createStudyInput) (*mcp.CallToolResult, studyOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, studyOutput{}, fmt.Errorf("title is required")
	}
	fields, err := models.ParseFields(input.Fields)
	if err != nil {
		return nil, studyOutput{}, err
	}

	st := models.NewStudy(input.Title, input.OwnerID, fields...)
	if input.StudyID != "" {
		st.ID = input.StudyID
	}
	if input.Description != "" {
		st.WithDescription(input.Description)
	}
	if input.Type != "" {
		st.WithType(models.StudyType(input.Type))
	}

	if err := s.repo.CreateStudy(ctx, st); err != nil {
		return nil, studyOutput{}, fmt.Errorf("failed to create study: %w", err)
	}
	table, err := storage.TableNameFor(st.ID)
	if err != nil {
		return nil, studyOutput{}, err
	}

	s.log.Debug().Str("study_id", st.ID).Msg("study created")
	return nil, studyOutput{
		StudyID: st.ID,
		Table:   table,
		Fields:  fieldNames(st.Fields),
		Message: fmt.Sprintf("Created study %q (ID: %s)", st.Title, st.ID),
	}, nil
}

func (s *Server) handleListStudies(ctx context.Context, req *mcp.CallToolRequest, input listStudiesInput) (*mcp.CallToolResult, any, error) {
	studies, err := s.repo.ListStudies(ctx, input.OwnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list studies: %w", err)
	}

	if len(studies) == 0 {
		return nil, map[string]any{"message": "No studies found."}, nil
	}

	return nil, studies, nil
}

func (s *Server) handleUpdateStudyFields(ctx context.Context, req *mcp.CallToolRequest, input updateStudyFieldsInput) (*mcp.CallToolResult, studyOutput, error) {
	fields, err := models.ParseFields(input.Fields)
	if err != nil {
		return nil, studyOutput{}, err
	}
	if err := s.repo.UpdateStudyFields(ctx, input.StudyID, fields); err != nil {
		return nil, studyOutput{}, fmt.Errorf("failed to update study fields: %w", err)
	}

	table, _ := storage.TableNameFor(input.StudyID)
	return nil, studyOutput{
		StudyID: input.StudyID,
		Table:   table,
		Fields:  fieldNames(fields),
		Message: fmt.Sprintf("Study %s now shows %s", input.StudyID, models.FieldNamesString(fields)),
	}, nil
}

func (s *Server) handleDeleteStudy(ctx context.Context, req *mcp.CallToolRequest, input studyIDInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.repo.DeleteStudy(ctx, input.StudyID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete study: %w", err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted study: %s", input.StudyID),
	}, nil
}

func (s *Server) handleCreateSurvey(ctx context.Context, req *mcp.CallToolRequest, input createSurveyInput) (*mcp.CallToolResult, surveyOutput, error) {
	sv := models.NewSurvey(input.StudyID, input.Title)
	if input.LocationID != "" {
		sv.WithLocation(input.LocationID)
	}
	if input.SurveyorEmail != "" {
		sv.WithSurveyor(input.SurveyorEmail)
	}

	if err := s.repo.CreateSurvey(ctx, sv); err != nil {
		return nil, surveyOutput{}, fmt.Errorf("failed to create survey: %w", err)
	}

	return nil, surveyOutput{
		SurveyID: sv.ID,
		StudyID:  sv.StudyID,
		Message:  fmt.Sprintf("Created survey %s for study %s", sv.ID, sv.StudyID),
	}, nil
}

func (s *Server) handleAddDataPoint(ctx context.Context, req *mcp.CallToolRequest, input addDataPointInput) (*mcp.CallToolResult, dataPointOutput, error) {
	rec := models.NewRecord()
	for k, v := range input.DataPoint {
		rec[k] = v
	}

	if err := s.repo.AddDataPoint(ctx, input.StudyID, input.SurveyID, rec); err != nil {
		return nil, dataPointOutput{}, fmt.Errorf("failed to add data point: %w", err)
	}

	id := rec.DataPointID()
	return nil, dataPointOutput{
		DataPointID: id,
		Message:     fmt.Sprintf("Added data point %s to survey %s", id, input.SurveyID),
	}, nil
}

func (s *Server) handleSaveDataPoint(ctx context.Context, req *mcp.CallToolRequest, input saveDataPointInput) (*mcp.CallToolResult, dataPointOutput, error) {
	rec := models.Record(input.DataPoint)
	if rec.DataPointID() == "" {
		return nil, dataPointOutput{}, fmt.Errorf("data_point_id is required")
	}

	if err := s.repo.SaveDataPoint(ctx, input.SurveyID, rec); err != nil {
		return nil, dataPointOutput{}, fmt.Errorf("failed to save data point: %w", err)
	}

	return nil, dataPointOutput{
		DataPointID: rec.DataPointID(),
		Message:     fmt.Sprintf("Saved data point %s", rec.DataPointID()),
	}, nil
}

func (s *Server) handleListDataPoints(ctx context.Context, req *mcp.CallToolRequest, input listDataPointsInput) (*mcp.CallToolResult, dataPointsOutput, error) {
	if input.StudyID == "" && input.SurveyID == "" {
		return nil, dataPointsOutput{}, fmt.Errorf("study_id or survey_id is required")
	}
	fields, err := models.ParseFields(input.Fields)
	if err != nil {
		return nil, dataPointsOutput{}, err
	}

	points, err := s.repo.ListDataPoints(ctx, storage.Query{
		StudyID:  input.StudyID,
		SurveyID: input.SurveyID,
		Fields:   fields,
	})
	if err != nil {
		return nil, dataPointsOutput{}, fmt.Errorf("failed to list data points: %w", err)
	}

	out := dataPointsOutput{Count: len(points), DataPoints: make([]models.Record, len(points))}
	for i, p := range points {
		out.DataPoints[i] = p.Record()
	}
	return nil, out, nil
}

func (s *Server) handleDeleteDataPoint(ctx context.Context, req *mcp.CallToolRequest, input deleteDataPointInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.repo.DeleteDataPoint(ctx, input.SurveyID, input.DataPointID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete data point: %w", err)
	}

	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted data point: %s", input.DataPointID),
	}, nil
}
