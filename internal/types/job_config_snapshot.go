package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobConfigSnapshot is one published Job configuration, stored append-only.
// Rows are never updated; a successful JobUpdate appends a new row and the
// latest row per job is the live configuration.
type JobConfigSnapshot struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID     string         `gorm:"column:job_id;not null;index" json:"job_id"`
	Config    datatypes.JSON `gorm:"type:jsonb;not null" json:"config"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (JobConfigSnapshot) TableName() string { return "job_config_snapshot" }
