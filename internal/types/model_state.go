package types

import (
	"fmt"
	"time"
)

// State and diagnostic document kinds.
const (
	ResultTypeModelSnapshot    = "model_snapshot"
	ResultTypeQuantiles        = "quantiles"
	ResultTypeModelSizeStats   = "model_size_stats"
	ResultTypeModelDebugOutput = "model_debug_output"
)

// ModelSnapshot describes a saved copy of the detection model. Unlike other
// result documents it may be re-indexed after the fact, when its description
// is edited; the deterministic id makes that an in-place overwrite.
type ModelSnapshot struct {
	JobID                 string          `json:"job_id"`
	SnapshotID            string          `json:"snapshot_id"`
	Timestamp             time.Time       `json:"timestamp"`
	Description           string          `json:"description,omitempty"`
	SnapshotDocCount      int64           `json:"snapshot_doc_count,omitempty"`
	ModelSizeStats        *ModelSizeStats `json:"model_size_stats,omitempty"`
	LatestRecordTimestamp *time.Time      `json:"latest_record_time_stamp,omitempty"`
	LatestResultTimestamp *time.Time      `json:"latest_result_time_stamp,omitempty"`
}

func (m *ModelSnapshot) DocumentID() string {
	return fmt.Sprintf("%s_model_snapshot_%s", m.JobID, m.SnapshotID)
}

// Quantiles holds the normalization state for one job. There is exactly one
// quantiles document per job, overwritten on every persist.
type Quantiles struct {
	JobID         string    `json:"job_id"`
	Timestamp     time.Time `json:"timestamp"`
	QuantileState string    `json:"quantile_state"`
}

func (q *Quantiles) DocumentID() string {
	return q.JobID + "_quantiles"
}

// ModelSizeStats reports the detection model's memory footprint.
type ModelSizeStats struct {
	JobID                         string    `json:"job_id"`
	ResultType                    string    `json:"result_type,omitempty"`
	ModelBytes                    int64     `json:"model_bytes"`
	TotalByFieldCount             int64     `json:"total_by_field_count,omitempty"`
	TotalOverFieldCount           int64     `json:"total_over_field_count,omitempty"`
	TotalPartitionFieldCount      int64     `json:"total_partition_field_count,omitempty"`
	BucketAllocationFailuresCount int64     `json:"bucket_allocation_failures_count,omitempty"`
	MemoryStatus                  string    `json:"memory_status,omitempty"`
	LogTime                       time.Time `json:"log_time"`
	Timestamp                     time.Time `json:"timestamp,omitempty"`
}

// DocumentID addresses the single overwritable "latest" slot; the historical
// copy of each stats document is written under a generated id.
func (s *ModelSizeStats) DocumentID() string {
	return s.JobID + "_model_size_stats"
}

// ModelDebugOutput is a per-bucket dump of model bounds for one series.
// Append-only: every document gets a generated id and none is overwritten.
type ModelDebugOutput struct {
	JobID               string    `json:"job_id"`
	Timestamp           time.Time `json:"timestamp"`
	PartitionFieldName  string    `json:"partition_field_name,omitempty"`
	PartitionFieldValue string    `json:"partition_field_value,omitempty"`
	OverFieldName       string    `json:"over_field_name,omitempty"`
	OverFieldValue      string    `json:"over_field_value,omitempty"`
	ByFieldName         string    `json:"by_field_name,omitempty"`
	ByFieldValue        string    `json:"by_field_value,omitempty"`
	DebugFeature        string    `json:"debug_feature,omitempty"`
	DebugLower          float64   `json:"debug_lower"`
	DebugUpper          float64   `json:"debug_upper"`
	DebugMedian         float64   `json:"debug_median"`
	Actual              float64   `json:"actual"`
}
