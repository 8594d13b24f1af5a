package types

import (
	"fmt"
	"time"
)

// Result type discriminators, also used as the document kind in the store.
const (
	ResultTypeBucket                    = "bucket"
	ResultTypeRecord                    = "record"
	ResultTypeInfluencer                = "influencer"
	ResultTypeBucketInfluencer          = "bucket_influencer"
	ResultTypePartitionMaxProbabilities = "partition_normalized_probs"
	ResultTypeCategoryDefinition        = "category_definition"
)

// Bucket is the per-time-window summary of everything the engine detected.
// Records are carried for in-process consumers only and are stripped before
// the bucket document is persisted; they are written as standalone documents.
type Bucket struct {
	JobID                    string             `json:"job_id"`
	Timestamp                time.Time          `json:"timestamp"`
	AnomalyScore             float64            `json:"anomaly_score"`
	InitialAnomalyScore      float64            `json:"initial_anomaly_score,omitempty"`
	MaxNormalizedProbability float64            `json:"max_normalized_probability,omitempty"`
	RecordCount              int                `json:"record_count"`
	EventCount               int64              `json:"event_count,omitempty"`
	IsInterim                bool               `json:"is_interim,omitempty"`
	BucketSpan               int64              `json:"bucket_span"`
	ProcessingTimeMS         int64              `json:"processing_time_ms,omitempty"`
	BucketInfluencers        []BucketInfluencer `json:"bucket_influencers,omitempty"`
	Records                  []AnomalyRecord    `json:"records,omitempty"`
}

func (b *Bucket) Epoch() int64 { return b.Timestamp.Unix() }

// DocumentID is deterministic so renormalization overwrites the same
// document instead of duplicating it.
func (b *Bucket) DocumentID() string {
	return fmt.Sprintf("%s_bucket_%d", b.JobID, b.Epoch())
}

// WithoutRecords returns a copy safe to persist. The receiver keeps its
// records; only the copy has them cleared.
func (b *Bucket) WithoutRecords() *Bucket {
	out := *b
	out.Records = nil
	return &out
}

// BucketInfluencer scores one influencer field's contribution to a bucket.
// It is persisted both nested in its bucket and as a standalone document.
type BucketInfluencer struct {
	JobID               string    `json:"job_id"`
	Timestamp           time.Time `json:"timestamp"`
	InfluencerFieldName string    `json:"influencer_field_name"`
	AnomalyScore        float64   `json:"anomaly_score"`
	InitialAnomalyScore float64   `json:"initial_anomaly_score,omitempty"`
	RawAnomalyScore     float64   `json:"raw_anomaly_score,omitempty"`
	Probability         float64   `json:"probability"`
	IsInterim           bool      `json:"is_interim,omitempty"`
	BucketSpan          int64     `json:"bucket_span,omitempty"`
}

func (bi *BucketInfluencer) DocumentID() string {
	return fmt.Sprintf("%s_bucket_influencer_%d_%s", bi.JobID, bi.Timestamp.Unix(), bi.InfluencerFieldName)
}

// AnomalyRecord is one detected anomaly. ID is the persisted document
// identity, assigned by the producing pipeline and stable across
// renormalization passes; it is not part of the document body.
type AnomalyRecord struct {
	ID                           string            `json:"-"`
	JobID                        string            `json:"job_id"`
	Timestamp                    time.Time         `json:"timestamp"`
	DetectorIndex                int               `json:"detector_index"`
	Probability                  float64           `json:"probability"`
	AnomalyScore                 float64           `json:"anomaly_score"`
	NormalizedProbability        float64           `json:"normalized_probability"`
	InitialNormalizedProbability float64           `json:"initial_normalized_probability,omitempty"`
	BucketSpan                   int64             `json:"bucket_span,omitempty"`
	Function                     string            `json:"function,omitempty"`
	FieldName                    string            `json:"field_name,omitempty"`
	ByFieldName                  string            `json:"by_field_name,omitempty"`
	ByFieldValue                 string            `json:"by_field_value,omitempty"`
	OverFieldName                string            `json:"over_field_name,omitempty"`
	OverFieldValue               string            `json:"over_field_value,omitempty"`
	PartitionFieldName           string            `json:"partition_field_name,omitempty"`
	PartitionFieldValue          string            `json:"partition_field_value,omitempty"`
	Actual                       []float64         `json:"actual,omitempty"`
	Typical                      []float64         `json:"typical,omitempty"`
	IsInterim                    bool              `json:"is_interim,omitempty"`
	Influencers                  []RecordInfluence `json:"influencers,omitempty"`
}

// RecordInfluence names the influencer field values behind one record.
type RecordInfluence struct {
	FieldName   string   `json:"influencer_field_name"`
	FieldValues []string `json:"influencer_field_values"`
}

// Influencer aggregates one influencer field value's effect over a bucket.
// ID follows the same caller-assigned policy as AnomalyRecord.
type Influencer struct {
	ID                   string    `json:"-"`
	JobID                string    `json:"job_id"`
	Timestamp            time.Time `json:"timestamp"`
	InfluencerFieldName  string    `json:"influencer_field_name"`
	InfluencerFieldValue string    `json:"influencer_field_value"`
	Probability          float64   `json:"probability"`
	AnomalyScore         float64   `json:"anomaly_score"`
	InitialAnomalyScore  float64   `json:"initial_anomaly_score,omitempty"`
	IsInterim            bool      `json:"is_interim,omitempty"`
	BucketSpan           int64     `json:"bucket_span,omitempty"`
}

// PerPartitionMaxProbabilities records, for one bucket, the highest
// normalized probability seen in each partition.
type PerPartitionMaxProbabilities struct {
	ID            string                 `json:"-"`
	JobID         string                 `json:"job_id"`
	Timestamp     time.Time              `json:"timestamp"`
	BucketSpan    int64                  `json:"bucket_span,omitempty"`
	Probabilities []PartitionProbability `json:"per_partition_max_probabilities"`
	IsInterim     bool                   `json:"is_interim,omitempty"`
}

type PartitionProbability struct {
	PartitionFieldValue      string  `json:"partition_field_value"`
	MaxNormalizedProbability float64 `json:"max_normalized_probability"`
}

// CategoryDefinition describes one learned message category.
type CategoryDefinition struct {
	JobID             string   `json:"job_id"`
	CategoryID        int64    `json:"category_id"`
	Terms             string   `json:"terms,omitempty"`
	Regex             string   `json:"regex,omitempty"`
	MaxMatchingLength int64    `json:"max_matching_length,omitempty"`
	Examples          []string `json:"examples,omitempty"`
}

func (c *CategoryDefinition) DocumentID() string {
	return fmt.Sprintf("%s_category_definition_%d", c.JobID, c.CategoryID)
}
