// ABOUTME: MCP resource implementations for the commonspace store.
// ABOUTME: Provides commonspace://fields and commonspace://studies resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	fieldsURI  = "commonspace://fields"
	studiesURI = "commonspace://studies"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         fieldsURI,
		Name:        "Field Catalog",
		Description: "Every observation field with its storage type and allowed values",
		MIMEType:    "application/json",
	}, s.handleFieldsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         studiesURI,
		Name:        "Studies",
		Description: "All studies with their selected fields and survey counts",
		MIMEType:    "application/json",
	}, s.handleStudiesResource)
}

type studySummary struct {
	StudyID string   `json:"study_id"`
	Title   string   `json:"title"`
	OwnerID string   `json:"owner_id"`
	Status  string   `json:"status"`
	Fields  []string `json:"fields"`
	Surveys int      `json:"surveys"`
}

// Resource handlers

func (s *Server) handleFieldsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(fieldsURI, catalogOutput())
}

func (s *Server) handleStudiesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	studies, err := s.repo.ListStudies(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list studies: %w", err)
	}

	summaries := make([]studySummary, 0, len(studies))
	for _, st := range studies {
		surveys, err := s.repo.ListSurveys(ctx, st.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list surveys of %s: %w", st.ID, err)
		}
		summaries = append(summaries, studySummary{
			StudyID: st.ID,
			Title:   st.Title,
			OwnerID: st.OwnerID,
			Status:  string(st.Status),
			Fields:  fieldNames(st.Fields),
			Surveys: len(surveys),
		})
	}

	return jsonResource(studiesURI, map[string]any{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"count":        len(summaries),
		"studies":      summaries,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
