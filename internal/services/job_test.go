package services

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/gorm"

	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
	"github.com/driftwatch/anomaly-backend/internal/platform/valerr"
	"github.com/driftwatch/anomaly-backend/internal/types"
)

type fakeConfigRepo struct {
	rows []*types.JobConfigSnapshot
}

func (r *fakeConfigRepo) Append(ctx context.Context, tx *gorm.DB, snapshot *types.JobConfigSnapshot) error {
	r.rows = append(r.rows, snapshot)
	return nil
}

func (r *fakeConfigRepo) GetLatest(ctx context.Context, tx *gorm.DB, jobID string) (*types.JobConfigSnapshot, error) {
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].JobID == jobID {
			return r.rows[i], nil
		}
	}
	return nil, nil
}

func seedJob(t *testing.T, repo *fakeConfigRepo, job *types.Job) {
	t.Helper()
	raw, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	repo.rows = append(repo.rows, &types.JobConfigSnapshot{JobID: job.ID, Config: raw})
}

func descPtr(v string) *string { return &v }

func TestUpdateJob_AppendsNewSnapshot(t *testing.T) {
	repo := &fakeConfigRepo{}
	seedJob(t, repo, &types.Job{
		ID:          "farequote",
		Description: "old",
		AnalysisConfig: types.AnalysisConfig{
			Detectors: []types.Detector{{Function: "count"}},
		},
	})
	service := NewJobService(repo, logger.NewNop())

	updated, err := service.UpdateJob(context.Background(), "farequote",
		&types.JobUpdate{Description: descPtr("new")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Description != "new" {
		t.Fatalf("update not applied: %#v", updated)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("update must append a snapshot, have %d rows", len(repo.rows))
	}

	// The latest snapshot round-trips to the merged job.
	latest, err := service.GetJob(context.Background(), "farequote")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if latest.Description != "new" {
		t.Fatalf("latest snapshot stale: %#v", latest)
	}
}

func TestUpdateJob_ValidationFailureAppendsNothing(t *testing.T) {
	repo := &fakeConfigRepo{}
	seedJob(t, repo, &types.Job{
		ID: "farequote",
		AnalysisConfig: types.AnalysisConfig{
			Detectors: []types.Detector{{Function: "count"}},
		},
	})
	service := NewJobService(repo, logger.NewNop())

	_, err := service.UpdateJob(context.Background(), "farequote", &types.JobUpdate{
		DetectorUpdates: []types.DetectorUpdate{{Index: 5, Description: descPtr("boom")}},
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !valerr.Is(err) {
		t.Fatalf("expected validation error, got %T: %v", err, err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("failed update must not append, have %d rows", len(repo.rows))
	}
}

func TestUpdateJob_UnknownJob(t *testing.T) {
	service := NewJobService(&fakeConfigRepo{}, logger.NewNop())
	_, err := service.UpdateJob(context.Background(), "missing",
		&types.JobUpdate{Description: descPtr("x")})
	if err == nil {
		t.Fatalf("expected error for unknown job")
	}
	if !valerr.Is(err) {
		t.Fatalf("unknown job should be a validation error, got %T: %v", err, err)
	}
}
