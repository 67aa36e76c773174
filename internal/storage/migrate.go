// ABOUTME: Data migration between commonspace storage backends.
// ABOUTME: Copies studies, surveys, and data points from source to destination.
package storage

import (
	"context"
	"fmt"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Studies    int
	Surveys    int
	DataPoints int
}

// MigrateData copies all data from src to dst storage.
// Studies are created first so their tables exist before surveys and data
// points arrive. The destination should be empty before calling this function.
func MigrateData(ctx context.Context, src, dst Repository) (*MigrateSummary, error) {
	summary := &MigrateSummary{}

	studies, err := src.ListStudies(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list source studies: %w", err)
	}

	for _, s := range studies {
		if err := dst.CreateStudy(ctx, s); err != nil {
			return nil, fmt.Errorf("create study %s: %w", s.ID, err)
		}
		summary.Studies++

		surveys, err := src.ListSurveys(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("list surveys of %s: %w", s.ID, err)
		}
		for _, sv := range surveys {
			if err := dst.CreateSurvey(ctx, sv); err != nil {
				return nil, fmt.Errorf("create survey %s: %w", sv.ID, err)
			}
			summary.Surveys++

			// Project every column so fields outside the display selection survive.
			points, err := src.ListDataPoints(ctx, Query{SurveyID: sv.ID, Fields: models.AllFieldNames()})
			if err != nil {
				return nil, fmt.Errorf("list data points of %s: %w", sv.ID, err)
			}
			for _, p := range points {
				if err := dst.AddDataPoint(ctx, s.ID, sv.ID, p.Record()); err != nil {
					return nil, fmt.Errorf("add data point %s: %w", p.ID, err)
				}
				summary.DataPoints++
			}
		}
	}

	return summary, nil
}
