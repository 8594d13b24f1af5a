package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/driftwatch/anomaly-backend/internal/persistence"
	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
	"github.com/driftwatch/anomaly-backend/internal/types"
)

// Processor consumes one job's autodetect result stream and drives the
// persistence layer. Records and influencers accumulate in the current
// batch; the bucket that closes a time window flushes the batch, so every
// bulk write covers exactly one window. Single goroutine, single owner.
type Processor struct {
	persister *persistence.JobResultsPersister
	log       *logger.Logger
	jobID     string

	recordSeq int
	buckets   int
}

func NewProcessor(persister *persistence.JobResultsPersister, baseLog *logger.Logger, jobID string) *Processor {
	return &Processor{
		persister: persister,
		log:       baseLog.With("component", "ResultsProcessor", "job_id", jobID),
		jobID:     jobID,
	}
}

// Process reads newline-delimited AutodetectResult JSON until EOF, then
// flushes the remaining batch and commits result writes.
func (p *Processor) Process(ctx context.Context, stream io.Reader) error {
	decoder := json.NewDecoder(stream)
	builder := p.persister.BulkPersisterBuilder(p.jobID)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var result types.AutodetectResult
		if err := decoder.Decode(&result); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode autodetect result for job %s: %w", p.jobID, err)
		}
		builder = p.apply(ctx, builder, &result)
	}

	builder.ExecuteRequest(ctx)
	if err := p.persister.CommitResultWrites(ctx, p.jobID); err != nil {
		return err
	}
	p.log.Info("result stream complete", "buckets", p.buckets)
	return nil
}

func (p *Processor) apply(ctx context.Context, builder *persistence.Builder, result *types.AutodetectResult) *persistence.Builder {
	if len(result.Records) > 0 {
		p.assignRecordIDs(result.Records)
		builder.PersistRecords(result.Records)
	}
	if len(result.Influencers) > 0 {
		assignInfluencerIDs(result.Influencers)
		builder.PersistInfluencers(result.Influencers)
	}
	if probs := result.PerPartitionMaxProbabilities; probs != nil {
		if probs.ID == "" {
			probs.ID = fmt.Sprintf("%s_%s_%d", probs.JobID, types.ResultTypePartitionMaxProbabilities, probs.Timestamp.Unix())
		}
		builder.PersistPerPartitionMaxProbabilities(probs)
	}
	if result.Bucket != nil {
		// The bucket closes the current window: queue it and flush.
		builder.PersistBucket(result.Bucket)
		builder.ExecuteRequest(ctx)
		p.buckets++
		p.recordSeq = 0
		return p.persister.BulkPersisterBuilder(p.jobID)
	}

	if result.CategoryDefinition != nil {
		p.persister.PersistCategoryDefinition(ctx, result.CategoryDefinition)
	}
	if result.ModelSnapshot != nil {
		p.persister.PersistModelSnapshot(ctx, result.ModelSnapshot)
	}
	if result.Quantiles != nil {
		p.persister.PersistQuantiles(ctx, result.Quantiles)
	}
	if result.ModelSizeStats != nil {
		p.persister.PersistModelSizeStats(ctx, result.ModelSizeStats)
	}
	if result.ModelDebugOutput != nil {
		p.persister.PersistModelDebugOutput(ctx, result.ModelDebugOutput)
	}
	return builder
}

// assignRecordIDs fills in identities for records that arrived without one.
// The derivation uses the record's position in its window, which repeats
// across renormalization passes, so rewrites overwrite in place.
func (p *Processor) assignRecordIDs(records []types.AnomalyRecord) {
	for i := range records {
		if records[i].ID != "" {
			continue
		}
		records[i].ID = fmt.Sprintf("%s_%s_%d_%d_%d", records[i].JobID, types.ResultTypeRecord,
			records[i].Timestamp.Unix(), records[i].DetectorIndex, p.recordSeq)
		p.recordSeq++
	}
}

func assignInfluencerIDs(influencers []types.Influencer) {
	for i := range influencers {
		if influencers[i].ID != "" {
			continue
		}
		influencers[i].ID = fmt.Sprintf("%s_%s_%d_%s_%s", influencers[i].JobID, types.ResultTypeInfluencer,
			influencers[i].Timestamp.Unix(), influencers[i].InfluencerFieldName, influencers[i].InfluencerFieldValue)
	}
}
