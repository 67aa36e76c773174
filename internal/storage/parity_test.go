// ABOUTME: Tests for the metadata/table parity sweep.
// ABOUTME: Creates drift on purpose and checks detection and repair.
package storage

import (
	"context"
	"reflect"
	"testing"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

func TestCheckParityClean(t *testing.T) {
	db := setupTestDB(t)
	setupStudy(t, db, "clean", models.FieldGender)

	report, err := db.CheckParity(context.Background())
	if err != nil {
		t.Fatalf("CheckParity failed: %v", err)
	}
	if !report.OK() {
		t.Errorf("expected clean report, got %+v", report)
	}
}

func TestCheckAndRepairParity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s, _ := setupStudy(t, db, "drift", models.FieldGender)

	// Table without metadata.
	if err := db.Engine().Provision(ctx, db.SQL(), "orphan"); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	// Metadata without table.
	if _, err := db.SQL().ExecContext(ctx, `DROP TABLE "study_drift"`); err != nil {
		t.Fatalf("drop table failed: %v", err)
	}

	report, err := db.CheckParity(ctx)
	if err != nil {
		t.Fatalf("CheckParity failed: %v", err)
	}
	if !reflect.DeepEqual(report.MissingTables, []string{s.ID}) {
		t.Errorf("MissingTables = %v, want [%s]", report.MissingTables, s.ID)
	}
	if !reflect.DeepEqual(report.OrphanTables, []string{"study_orphan"}) {
		t.Errorf("OrphanTables = %v, want [study_orphan]", report.OrphanTables)
	}

	repaired, err := db.RepairParity(ctx)
	if err != nil {
		t.Fatalf("RepairParity failed: %v", err)
	}
	if repaired.OK() {
		t.Error("RepairParity should report what it fixed")
	}

	after, err := db.CheckParity(ctx)
	if err != nil {
		t.Fatalf("CheckParity failed: %v", err)
	}
	if !after.OK() {
		t.Errorf("expected clean report after repair, got %+v", after)
	}
}

func TestDeleteStudyWithMissingTable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s, _ := setupStudy(t, db, "halfgone")

	if _, err := db.SQL().ExecContext(ctx, `DROP TABLE "study_halfgone"`); err != nil {
		t.Fatalf("drop table failed: %v", err)
	}
	if err := db.DeleteStudy(ctx, s.ID); err != nil {
		t.Fatalf("DeleteStudy should tolerate a missing table: %v", err)
	}
}
