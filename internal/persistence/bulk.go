package persistence

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftwatch/anomaly-backend/internal/docstore"
	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
	"github.com/driftwatch/anomaly-backend/internal/types"
)

// Builder accumulates one job cycle's result documents and writes them in a
// single bulk call. It is scoped to one job and one results index for its
// whole life, is not safe for concurrent use, and is discarded after
// ExecuteRequest.
type Builder struct {
	store     docstore.Store
	log       *logger.Logger
	tracer    trace.Tracer
	jobID     string
	indexName string
	items     []docstore.BulkItem
}

// PersistBucket queues a bucket under its deterministic id, then queues each
// of its bucket influencers standalone under their own deterministic ids.
// Buckets never persist nested records: a bucket that carries records is
// copied and the copy's records cleared, the caller's bucket is untouched.
func (b *Builder) PersistBucket(bucket *types.Bucket) *Builder {
	toPersist := bucket
	if len(bucket.Records) > 0 {
		toPersist = bucket.WithoutRecords()
	}
	body, err := json.Marshal(toPersist)
	if err != nil {
		b.log.Error("bucket serialization failed", "kind", types.ResultTypeBucket,
			"epoch", bucket.Epoch(), "error", err)
		return b
	}
	b.log.Debug("queueing bucket", "index", b.indexName, "epoch", toPersist.Epoch())
	b.add(types.ResultTypeBucket, toPersist.DocumentID(), body)

	for i := range toPersist.BucketInfluencers {
		influencer := &toPersist.BucketInfluencers[i]
		ibody, err := json.Marshal(influencer)
		if err != nil {
			b.log.Error("bucket influencer serialization failed", "kind", types.ResultTypeBucketInfluencer,
				"influencer_field", influencer.InfluencerFieldName, "error", err)
			continue
		}
		// Deterministic ids so renormalization overwrites in place.
		b.add(types.ResultTypeBucketInfluencer, influencer.DocumentID(), ibody)
	}
	return b
}

// PersistRecords queues anomaly records under their caller-assigned ids.
func (b *Builder) PersistRecords(records []types.AnomalyRecord) *Builder {
	for i := range records {
		record := &records[i]
		body, err := json.Marshal(record)
		if err != nil {
			b.log.Error("record serialization failed", "kind", types.ResultTypeRecord,
				"doc_id", record.ID, "error", err)
			continue
		}
		b.add(types.ResultTypeRecord, record.ID, body)
	}
	return b
}

// PersistInfluencers queues influencers under their caller-assigned ids.
func (b *Builder) PersistInfluencers(influencers []types.Influencer) *Builder {
	for i := range influencers {
		influencer := &influencers[i]
		body, err := json.Marshal(influencer)
		if err != nil {
			b.log.Error("influencer serialization failed", "kind", types.ResultTypeInfluencer,
				"doc_id", influencer.ID, "error", err)
			continue
		}
		b.add(types.ResultTypeInfluencer, influencer.ID, body)
	}
	return b
}

// PersistPerPartitionMaxProbabilities queues one per-partition maximum
// probabilities document under its caller-assigned id.
func (b *Builder) PersistPerPartitionMaxProbabilities(probs *types.PerPartitionMaxProbabilities) *Builder {
	body, err := json.Marshal(probs)
	if err != nil {
		b.log.Error("per partition max probabilities serialization failed",
			"kind", types.ResultTypePartitionMaxProbabilities, "error", err)
		return b
	}
	b.add(types.ResultTypePartitionMaxProbabilities, probs.ID, body)
	return b
}

// Len reports how many documents are queued.
func (b *Builder) Len() int { return len(b.items) }

// ExecuteRequest writes the whole batch in one bulk call. An empty batch is
// a no-op. Partial failures are logged and accepted: the pipeline re-derives
// missing documents on its next cycle, so a best-effort write beats stalling
// the stream. Nothing here retries and nothing propagates.
func (b *Builder) ExecuteRequest(ctx context.Context) {
	if len(b.items) == 0 {
		return
	}
	ctx, span := b.tracer.Start(ctx, "persist.bulk",
		trace.WithAttributes(attribute.String("job_id", b.jobID), attribute.Int("actions", len(b.items))))
	defer span.End()

	b.log.Debug("executing bulk request", "actions", len(b.items))
	failures, err := b.store.Bulk(ctx, b.items)
	if err != nil {
		b.log.Error("bulk index of results failed", "error", err)
		return
	}
	for _, failure := range failures {
		b.log.Error("bulk index of results has errors",
			"kind", failure.Kind, "doc_id", failure.ID, "reason", failure.Reason)
	}
}

func (b *Builder) add(kind, id string, body []byte) {
	b.items = append(b.items, docstore.BulkItem{
		Index: b.indexName,
		Kind:  kind,
		ID:    id,
		Body:  body,
	})
}
