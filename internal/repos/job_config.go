package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
	"github.com/driftwatch/anomaly-backend/internal/types"
)

type JobConfigRepo interface {
	Append(ctx context.Context, tx *gorm.DB, snapshot *types.JobConfigSnapshot) error
	GetLatest(ctx context.Context, tx *gorm.DB, jobID string) (*types.JobConfigSnapshot, error)
}

type jobConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobConfigRepo(db *gorm.DB, baseLog *logger.Logger) JobConfigRepo {
	return &jobConfigRepo{
		db:  db,
		log: baseLog.With("repo", "JobConfigRepo"),
	}
}

func (r *jobConfigRepo) Append(ctx context.Context, tx *gorm.DB, snapshot *types.JobConfigSnapshot) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if snapshot == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(snapshot).Error
}

func (r *jobConfigRepo) GetLatest(ctx context.Context, tx *gorm.DB, jobID string) (*types.JobConfigSnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if jobID == "" {
		return nil, nil
	}
	var snapshot types.JobConfigSnapshot
	err := transaction.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
