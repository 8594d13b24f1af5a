package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftwatch/anomaly-backend/internal/docstore"
	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
	"github.com/driftwatch/anomaly-backend/internal/types"
)

// RefreshEvent announces that an index's visibility horizon moved.
type RefreshEvent struct {
	JobID string    `json:"job_id"`
	Index string    `json:"index"`
	Tier  string    `json:"tier"`
	At    time.Time `json:"at"`
}

// Refresh tiers.
const (
	TierResults = "results"
	TierState   = "state"
)

// RefreshNotifier fans a refresh event out to interested readers.
// Notification is best effort; failures never fail the commit.
type RefreshNotifier interface {
	NotifyRefresh(ctx context.Context, ev RefreshEvent) error
}

// JobResultsPersister writes result and state documents for anomaly
// detection jobs. It holds no per-job state, so one instance is shared by
// every concurrently running job.
type JobResultsPersister struct {
	store    docstore.Store
	notifier RefreshNotifier
	log      *logger.Logger
	tracer   trace.Tracer
}

// NewJobResultsPersister builds a persister. notifier may be nil, in which
// case commits are not announced.
func NewJobResultsPersister(store docstore.Store, notifier RefreshNotifier, baseLog *logger.Logger) *JobResultsPersister {
	return &JobResultsPersister{
		store:    store,
		notifier: notifier,
		log:      baseLog.With("component", "JobResultsPersister"),
		tracer:   otel.Tracer("persistence"),
	}
}

// BulkPersisterBuilder starts a result batch scoped to one job's results
// index. The builder is single use and single owner.
func (p *JobResultsPersister) BulkPersisterBuilder(jobID string) *Builder {
	return &Builder{
		store:     p.store,
		log:       p.log.With("job_id", jobID),
		tracer:    p.tracer,
		jobID:     jobID,
		indexName: ResultsIndexName(jobID),
	}
}

// PersistCategoryDefinition writes a category definition under its
// deterministic id. No commit: these arrive in bulk and are not read back
// by this process.
func (p *JobResultsPersister) PersistCategoryDefinition(ctx context.Context, category *types.CategoryDefinition) bool {
	if category == nil {
		p.log.Warn("no document to persist", "kind", types.ResultTypeCategoryDefinition)
		return false
	}
	return p.persist(ctx, category.JobID, ResultsIndexName(category.JobID),
		types.ResultTypeCategoryDefinition, category.DocumentID(), category)
}

// PersistQuantiles writes the job's quantiles to the state index and, on
// success, commits state writes so dependent renormalization can read them
// immediately.
func (p *JobResultsPersister) PersistQuantiles(ctx context.Context, quantiles *types.Quantiles) bool {
	if quantiles == nil {
		p.log.Warn("no document to persist", "kind", types.ResultTypeQuantiles)
		return false
	}
	ok := p.persist(ctx, quantiles.JobID, StateIndexName(),
		types.ResultTypeQuantiles, quantiles.DocumentID(), quantiles)
	if ok {
		if err := p.CommitStateWrites(ctx, quantiles.JobID); err != nil {
			p.log.Error("state commit after quantiles persist failed",
				"job_id", quantiles.JobID, "error", err)
			return false
		}
	}
	return ok
}

// PersistModelSnapshot writes a model snapshot description under its
// deterministic id.
func (p *JobResultsPersister) PersistModelSnapshot(ctx context.Context, snapshot *types.ModelSnapshot) bool {
	if snapshot == nil {
		p.log.Warn("no document to persist", "kind", types.ResultTypeModelSnapshot)
		return false
	}
	return p.persist(ctx, snapshot.JobID, ResultsIndexName(snapshot.JobID),
		types.ResultTypeModelSnapshot, snapshot.DocumentID(), snapshot)
}

// UpdateModelSnapshot re-indexes an edited snapshot in place. Unlike the
// fire-and-forget persist paths this one surfaces the error: the caller is
// an explicit update request, not the result pipeline.
func (p *JobResultsPersister) UpdateModelSnapshot(ctx context.Context, snapshot *types.ModelSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("no model snapshot to update")
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("serialize model snapshot %s for job %s: %w", snapshot.SnapshotID, snapshot.JobID, err)
	}
	index := ResultsIndexName(snapshot.JobID)
	if err := p.store.Index(ctx, index, types.ResultTypeModelSnapshot, snapshot.DocumentID(), body); err != nil {
		return fmt.Errorf("update model snapshot %s for job %s: %w", snapshot.SnapshotID, snapshot.JobID, err)
	}
	return nil
}

// PersistModelSizeStats writes the stats twice: once under the
// deterministic id as the overwritable latest slot, once under a generated
// id as an append-only history entry. No commit: these are high frequency
// and only read for diagnostics.
func (p *JobResultsPersister) PersistModelSizeStats(ctx context.Context, stats *types.ModelSizeStats) {
	if stats == nil {
		p.log.Warn("no document to persist", "kind", types.ResultTypeModelSizeStats)
		return
	}
	jobID := stats.JobID
	p.log.Debug("persisting model size stats", "job_id", jobID, "model_bytes", stats.ModelBytes)
	index := ResultsIndexName(jobID)
	p.persist(ctx, jobID, index, types.ResultTypeModelSizeStats, stats.DocumentID(), stats)
	p.persist(ctx, jobID, index, types.ResultTypeModelSizeStats, "", stats)
}

// PersistModelDebugOutput appends one debug document under a generated id.
// No commit, same reasoning as model size stats.
func (p *JobResultsPersister) PersistModelDebugOutput(ctx context.Context, debug *types.ModelDebugOutput) {
	if debug == nil {
		p.log.Warn("no document to persist", "kind", types.ResultTypeModelDebugOutput)
		return
	}
	p.persist(ctx, debug.JobID, ResultsIndexName(debug.JobID), types.ResultTypeModelDebugOutput, "", debug)
}

// CommitResultWrites makes every prior write to the job's results index
// visible to readers. Refresh failure propagates; there is no fallback for
// writes that exist but cannot be seen.
func (p *JobResultsPersister) CommitResultWrites(ctx context.Context, jobID string) error {
	return p.commit(ctx, jobID, ResultsIndexName(jobID), TierResults)
}

// CommitStateWrites makes prior writes to the shared state index visible.
func (p *JobResultsPersister) CommitStateWrites(ctx context.Context, jobID string) error {
	return p.commit(ctx, jobID, StateIndexName(), TierState)
}

func (p *JobResultsPersister) commit(ctx context.Context, jobID, index, tier string) error {
	ctx, span := p.tracer.Start(ctx, "persist.commit",
		trace.WithAttributes(attribute.String("job_id", jobID), attribute.String("index", index)))
	defer span.End()

	p.log.Debug("refreshing index", "job_id", jobID, "index", index)
	if err := p.store.Refresh(ctx, index); err != nil {
		return fmt.Errorf("refresh index %s for job %s: %w", index, jobID, err)
	}
	if p.notifier != nil {
		ev := RefreshEvent{JobID: jobID, Index: index, Tier: tier, At: time.Now().UTC()}
		if err := p.notifier.NotifyRefresh(ctx, ev); err != nil {
			p.log.Warn("refresh notification failed", "job_id", jobID, "index", index, "error", err)
		}
	}
	return nil
}

// persist writes one document synchronously. A missing payload is a logged
// no-op, a serialization or store failure is logged and reported as false;
// the caller decides whether that is fatal.
func (p *JobResultsPersister) persist(ctx context.Context, jobID, index, kind, id string, payload interface{}) bool {
	if isNilPayload(payload) {
		p.log.Warn("no document to persist", "job_id", jobID, "kind", kind)
		return false
	}
	if id == "" {
		id = uuid.NewString()
	}

	ctx, span := p.tracer.Start(ctx, "persist.index",
		trace.WithAttributes(attribute.String("job_id", jobID), attribute.String("kind", kind)))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("serialization failed", "job_id", jobID, "kind", kind, "error", err)
		return false
	}
	p.log.Debug("indexing document", "job_id", jobID, "kind", kind, "index", index, "doc_id", id)
	if err := p.store.Index(ctx, index, kind, id, body); err != nil {
		p.log.Error("document write failed", "job_id", jobID, "kind", kind, "doc_id", id, "error", err)
		return false
	}
	return true
}

func isNilPayload(payload interface{}) bool {
	if payload == nil {
		return true
	}
	v := reflect.ValueOf(payload)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}
