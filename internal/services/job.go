package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
	"github.com/driftwatch/anomaly-backend/internal/platform/valerr"
	"github.com/driftwatch/anomaly-backend/internal/repos"
	"github.com/driftwatch/anomaly-backend/internal/types"
)

// JobService owns job configuration changes. Configurations are immutable
// snapshots: an update merges onto the latest snapshot and appends the
// result, it never edits a published row.
type JobService interface {
	GetJob(ctx context.Context, jobID string) (*types.Job, error)
	UpdateJob(ctx context.Context, jobID string, update *types.JobUpdate) (*types.Job, error)
}

type jobService struct {
	configs repos.JobConfigRepo
	log     *logger.Logger
}

func NewJobService(configs repos.JobConfigRepo, baseLog *logger.Logger) JobService {
	return &jobService{
		configs: configs,
		log:     baseLog.With("service", "JobService"),
	}
}

func (s *jobService) GetJob(ctx context.Context, jobID string) (*types.Job, error) {
	snapshot, err := s.configs.GetLatest(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if snapshot == nil {
		return nil, valerr.New("job_id", "job %q does not exist", jobID)
	}
	var job types.Job
	if err := json.Unmarshal(snapshot.Config, &job); err != nil {
		return nil, fmt.Errorf("decode job %s config: %w", jobID, err)
	}
	return &job, nil
}

func (s *jobService) UpdateJob(ctx context.Context, jobID string, update *types.JobUpdate) (*types.Job, error) {
	if update == nil {
		return nil, valerr.New("update", "no update supplied for job %q", jobID)
	}
	source, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	merged, err := update.Merge(source)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode job %s config: %w", jobID, err)
	}
	snapshot := &types.JobConfigSnapshot{
		ID:     uuid.New(),
		JobID:  jobID,
		Config: datatypes.JSON(raw),
	}
	if err := s.configs.Append(ctx, nil, snapshot); err != nil {
		return nil, fmt.Errorf("store job %s config: %w", jobID, err)
	}
	s.log.Info("job configuration updated", "job_id", jobID,
		"touches_engine", update.TouchesDetectionEngine())
	return merged, nil
}
