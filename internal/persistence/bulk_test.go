package persistence

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/driftwatch/anomaly-backend/internal/docstore"
	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
	"github.com/driftwatch/anomaly-backend/internal/types"
)

func testPersister(store docstore.Store) *JobResultsPersister {
	return NewJobResultsPersister(store, nil, logger.NewNop())
}

func testBucket(jobID string, epoch int64) *types.Bucket {
	return &types.Bucket{
		JobID:        jobID,
		Timestamp:    time.Unix(epoch, 0).UTC(),
		AnomalyScore: 42.0,
		RecordCount:  2,
		BucketSpan:   300,
		BucketInfluencers: []types.BucketInfluencer{
			{
				JobID:               jobID,
				Timestamp:           time.Unix(epoch, 0).UTC(),
				InfluencerFieldName: "airline",
				AnomalyScore:        42.0,
				Probability:         0.01,
			},
		},
		Records: []types.AnomalyRecord{
			{ID: "r1", JobID: jobID, Timestamp: time.Unix(epoch, 0).UTC(), Probability: 0.01},
			{ID: "r2", JobID: jobID, Timestamp: time.Unix(epoch, 0).UTC(), Probability: 0.02},
		},
	}
}

func TestPersistBucket_StripsRecordsAndQueuesInfluencers(t *testing.T) {
	store := docstore.NewMemoryStore()
	bucket := testBucket("job-1", 1000)

	builder := testPersister(store).BulkPersisterBuilder("job-1")
	builder.PersistBucket(bucket)
	builder.ExecuteRequest(context.Background())

	index := ResultsIndexName("job-1")
	// One bucket plus one standalone bucket influencer; the 2 records are
	// not written.
	if got := store.Count(index); got != 2 {
		t.Fatalf("expected 2 documents, got %d: %#v", got, store.IDs(index))
	}

	doc, ok := store.Get(index, "job-1_bucket_1000")
	if !ok {
		t.Fatalf("bucket document missing: %#v", store.IDs(index))
	}
	var persisted map[string]interface{}
	if err := json.Unmarshal(doc.Body, &persisted); err != nil {
		t.Fatalf("bad bucket body: %v", err)
	}
	if _, hasRecords := persisted["records"]; hasRecords {
		t.Fatalf("bucket must never persist nested records: %#v", persisted)
	}

	if _, ok := store.Get(index, "job-1_bucket_influencer_1000_airline"); !ok {
		t.Fatalf("standalone bucket influencer missing: %#v", store.IDs(index))
	}

	// The caller's bucket keeps its records.
	if len(bucket.Records) != 2 {
		t.Fatalf("source bucket was mutated: %#v", bucket.Records)
	}
}

func TestPersistBucket_OverwritesOnSameEpoch(t *testing.T) {
	store := docstore.NewMemoryStore()
	persister := testPersister(store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		builder := persister.BulkPersisterBuilder("job-1")
		builder.PersistBucket(testBucket("job-1", 1000))
		builder.ExecuteRequest(ctx)
	}

	index := ResultsIndexName("job-1")
	if got := store.Count(index); got != 2 {
		t.Fatalf("renormalization must overwrite, not duplicate; got %d docs: %#v", got, store.IDs(index))
	}
	if store.BulkCalls != 2 {
		t.Fatalf("expected 2 bulk calls, got %d", store.BulkCalls)
	}
}

func TestPersistRecordsAndInfluencers_UseCarriedIDs(t *testing.T) {
	store := docstore.NewMemoryStore()
	builder := testPersister(store).BulkPersisterBuilder("job-1")

	builder.PersistRecords([]types.AnomalyRecord{
		{ID: "rec-a", JobID: "job-1", Probability: 0.1},
	})
	builder.PersistInfluencers([]types.Influencer{
		{ID: "inf-a", JobID: "job-1", InfluencerFieldName: "airline", InfluencerFieldValue: "AAL"},
	})
	builder.PersistPerPartitionMaxProbabilities(&types.PerPartitionMaxProbabilities{
		ID: "ppmp-a", JobID: "job-1",
		Probabilities: []types.PartitionProbability{{PartitionFieldValue: "AAL", MaxNormalizedProbability: 90.0}},
	})
	builder.ExecuteRequest(context.Background())

	index := ResultsIndexName("job-1")
	for _, id := range []string{"rec-a", "inf-a", "ppmp-a"} {
		if _, ok := store.Get(index, id); !ok {
			t.Fatalf("document %q missing: %#v", id, store.IDs(index))
		}
	}
}

func TestExecuteRequest_EmptyBatchIsNoOp(t *testing.T) {
	store := docstore.NewMemoryStore()
	builder := testPersister(store).BulkPersisterBuilder("job-1")

	builder.ExecuteRequest(context.Background())

	if store.BulkCalls != 0 || store.IndexCalls != 0 {
		t.Fatalf("empty batch must not touch the store: bulk=%d index=%d", store.BulkCalls, store.IndexCalls)
	}
}

func TestExecuteRequest_PartialFailureIsBestEffort(t *testing.T) {
	store := docstore.NewMemoryStore()
	store.FailIDs = map[string]string{"rec-bad": "mapping conflict"}

	builder := testPersister(store).BulkPersisterBuilder("job-1")
	builder.PersistRecords([]types.AnomalyRecord{
		{ID: "rec-good", JobID: "job-1"},
		{ID: "rec-bad", JobID: "job-1"},
	})
	builder.ExecuteRequest(context.Background())

	index := ResultsIndexName("job-1")
	if _, ok := store.Get(index, "rec-good"); !ok {
		t.Fatalf("surviving item must be written: %#v", store.IDs(index))
	}
	if _, ok := store.Get(index, "rec-bad"); ok {
		t.Fatalf("failed item should not exist")
	}
}

func TestPersistRecords_SerializationFailureSkipsOnlyThatItem(t *testing.T) {
	store := docstore.NewMemoryStore()
	builder := testPersister(store).BulkPersisterBuilder("job-1")

	builder.PersistRecords([]types.AnomalyRecord{
		{ID: "rec-nan", JobID: "job-1", Probability: math.NaN()},
		{ID: "rec-ok", JobID: "job-1", Probability: 0.5},
	})
	if builder.Len() != 1 {
		t.Fatalf("unserializable record must be skipped, queue has %d items", builder.Len())
	}
	builder.ExecuteRequest(context.Background())

	index := ResultsIndexName("job-1")
	if _, ok := store.Get(index, "rec-ok"); !ok {
		t.Fatalf("good record missing: %#v", store.IDs(index))
	}
}

func TestPersistBucket_SerializationFailureSkipsBucket(t *testing.T) {
	store := docstore.NewMemoryStore()
	bucket := testBucket("job-1", 1000)
	bucket.AnomalyScore = math.Inf(1)

	builder := testPersister(store).BulkPersisterBuilder("job-1")
	builder.PersistBucket(bucket)
	builder.ExecuteRequest(context.Background())

	if store.BulkCalls != 0 {
		t.Fatalf("nothing should be written when the bucket cannot serialize")
	}
}
