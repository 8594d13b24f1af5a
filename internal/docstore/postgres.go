package docstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
)

// DocumentRow is one persisted document. (index_name, doc_id) is the
// identity the upsert runs on.
type DocumentRow struct {
	IndexName string         `gorm:"column:index_name;primaryKey" json:"index_name"`
	DocID     string         `gorm:"column:doc_id;primaryKey" json:"doc_id"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"`
	Body      datatypes.JSON `gorm:"column:body;type:jsonb" json:"body"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (DocumentRow) TableName() string { return "document" }

// IndexCheckpoint is the visibility horizon for one index. Readers only see
// documents written at or before the checkpoint; Refresh advances it.
type IndexCheckpoint struct {
	IndexName   string    `gorm:"column:index_name;primaryKey" json:"index_name"`
	RefreshedAt time.Time `gorm:"column:refreshed_at;not null" json:"refreshed_at"`
}

func (IndexCheckpoint) TableName() string { return "index_checkpoint" }

// PostgresStore implements Store on a relational document table.
type PostgresStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresStore(db *gorm.DB, baseLog *logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: baseLog.With("store", "PostgresStore"),
	}
}

// Migrate creates the document and checkpoint tables.
func (s *PostgresStore) Migrate() error {
	if err := s.db.AutoMigrate(&DocumentRow{}, &IndexCheckpoint{}); err != nil {
		return fmt.Errorf("migrate document store: %w", err)
	}
	return nil
}

func (s *PostgresStore) Index(ctx context.Context, index, kind, id string, body []byte) error {
	row := DocumentRow{
		IndexName: index,
		DocID:     id,
		Kind:      kind,
		Body:      datatypes.JSON(body),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "index_name"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "body", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("index %s/%s: %w", index, id, err)
	}
	return nil
}

// Bulk applies each item with its own upsert so one bad document cannot
// poison the rest of the batch. Per-item errors come back as failures, not
// as a call error.
func (s *PostgresStore) Bulk(ctx context.Context, items []BulkItem) ([]ItemFailure, error) {
	var failures []ItemFailure
	for _, item := range items {
		if err := s.Index(ctx, item.Index, item.Kind, item.ID, item.Body); err != nil {
			failures = append(failures, ItemFailure{ID: item.ID, Kind: item.Kind, Reason: err.Error()})
		}
	}
	return failures, nil
}

func (s *PostgresStore) Refresh(ctx context.Context, index string) error {
	checkpoint := IndexCheckpoint{
		IndexName:   index,
		RefreshedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "index_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"refreshed_at"}),
		}).
		Create(&checkpoint).Error
	if err != nil {
		return fmt.Errorf("refresh %s: %w", index, err)
	}
	return nil
}
