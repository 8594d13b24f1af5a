package types

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/driftwatch/anomaly-backend/internal/platform/valerr"
)

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func strPtr(v string) *string       { return &v }

func threeDetectorJob() *Job {
	return &Job{
		ID:          "farequote",
		Description: "original description",
		AnalysisConfig: AnalysisConfig{
			BucketSpan: int64Ptr(300),
			Detectors: []Detector{
				{Description: "d0", Function: "count"},
				{Description: "d1-old", Function: "mean", FieldName: "responsetime", ByFieldName: "airline"},
				{Description: "d2", Function: "max", FieldName: "responsetime"},
			},
			CategorizationFilters: []string{"\\[.*\\]"},
		},
		AnalysisLimits:             &AnalysisLimits{ModelMemoryLimitMB: int64Ptr(4096)},
		RenormalizationWindowDays:  int64Ptr(7),
		BackgroundPersistInterval:  int64Ptr(10800),
		ModelSnapshotRetentionDays: int64Ptr(2),
		ResultsRetentionDays:       int64Ptr(30),
		CustomSettings:             map[string]interface{}{"created_by": "ui"},
		ModelSnapshotID:            "snap-1",
	}
}

func TestMerge_AbsentFieldsPreserveSource(t *testing.T) {
	source := threeDetectorJob()
	merged, err := (&JobUpdate{}).Merge(source)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !reflect.DeepEqual(merged, source) {
		t.Fatalf("empty update changed the job:\n got: %#v\nwant: %#v", merged, source)
	}
}

func TestMerge_PresentFieldsOverwrite(t *testing.T) {
	source := threeDetectorJob()
	update := &JobUpdate{
		Description:                strPtr("renamed"),
		ModelDebugConfig:           &ModelDebugConfig{BoundsPercentile: float64Ptr(95.0), Terms: "airline"},
		AnalysisLimits:             &AnalysisLimits{ModelMemoryLimitMB: int64Ptr(8192)},
		RenormalizationWindowDays:  int64Ptr(14),
		BackgroundPersistInterval:  int64Ptr(3600),
		ModelSnapshotRetentionDays: int64Ptr(10),
		ResultsRetentionDays:       int64Ptr(90),
		CategorizationFilters:      []string{"foo.*"},
		CustomSettings:             map[string]interface{}{"owner": "ops"},
		ModelSnapshotID:            strPtr("snap-2"),
	}
	merged, err := update.Merge(source)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if merged.Description != "renamed" {
		t.Fatalf("description not applied: %#v", merged.Description)
	}
	if merged.ModelDebugConfig == nil || merged.ModelDebugConfig.Terms != "airline" {
		t.Fatalf("model debug config not applied: %#v", merged.ModelDebugConfig)
	}
	if *merged.AnalysisLimits.ModelMemoryLimitMB != 8192 {
		t.Fatalf("analysis limits not applied: %#v", merged.AnalysisLimits)
	}
	if *merged.RenormalizationWindowDays != 14 || *merged.BackgroundPersistInterval != 3600 {
		t.Fatalf("windows not applied: %#v", merged)
	}
	if *merged.ModelSnapshotRetentionDays != 10 || *merged.ResultsRetentionDays != 90 {
		t.Fatalf("retention not applied: %#v", merged)
	}
	if got := merged.AnalysisConfig.CategorizationFilters; len(got) != 1 || got[0] != "foo.*" {
		t.Fatalf("categorization filters not applied: %#v", got)
	}
	if merged.CustomSettings["owner"] != "ops" {
		t.Fatalf("custom settings not applied: %#v", merged.CustomSettings)
	}
	if merged.ModelSnapshotID != "snap-2" {
		t.Fatalf("model snapshot id not applied: %#v", merged.ModelSnapshotID)
	}
	// Fields the update does not carry keep the source values.
	if len(merged.AnalysisConfig.Detectors) != 3 || merged.AnalysisConfig.Detectors[1].Description != "d1-old" {
		t.Fatalf("detectors should be untouched: %#v", merged.AnalysisConfig.Detectors)
	}
}

func TestMerge_DetectorUpdateByIndex(t *testing.T) {
	source := threeDetectorJob()
	update := &JobUpdate{
		Description: strPtr("renamed"),
		DetectorUpdates: []DetectorUpdate{
			{Index: 1, Description: strPtr("d1")},
		},
	}
	merged, err := update.Merge(source)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if merged.Description != "renamed" {
		t.Fatalf("description not applied: %q", merged.Description)
	}
	if merged.AnalysisConfig.Detectors[1].Description != "d1" {
		t.Fatalf("detector 1 not updated: %#v", merged.AnalysisConfig.Detectors[1])
	}
	if !reflect.DeepEqual(merged.AnalysisConfig.Detectors[0], source.AnalysisConfig.Detectors[0]) ||
		!reflect.DeepEqual(merged.AnalysisConfig.Detectors[2], source.AnalysisConfig.Detectors[2]) {
		t.Fatalf("detectors 0 and 2 must be unchanged: %#v", merged.AnalysisConfig.Detectors)
	}
	if source.AnalysisConfig.Detectors[1].Description != "d1-old" {
		t.Fatalf("source was mutated: %#v", source.AnalysisConfig.Detectors[1])
	}
}

func TestMerge_TwoDetectorUpdates(t *testing.T) {
	source := threeDetectorJob()
	rules := []DetectionRule{{
		RuleAction:           "filter_results",
		ConditionsConnective: "or",
		Conditions: []RuleCondition{
			{ConditionType: "numerical_actual", Operator: "lt", Threshold: float64Ptr(5.0)},
		},
	}}
	update := &JobUpdate{
		DetectorUpdates: []DetectorUpdate{
			{Index: 0, Description: strPtr("zero")},
			{Index: 2, Rules: rules},
		},
	}
	merged, err := update.Merge(source)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if merged.AnalysisConfig.Detectors[0].Description != "zero" {
		t.Fatalf("detector 0 not updated: %#v", merged.AnalysisConfig.Detectors[0])
	}
	if len(merged.AnalysisConfig.Detectors[2].Rules) != 1 {
		t.Fatalf("detector 2 rules not updated: %#v", merged.AnalysisConfig.Detectors[2])
	}
	if !reflect.DeepEqual(merged.AnalysisConfig.Detectors[1], source.AnalysisConfig.Detectors[1]) {
		t.Fatalf("detector 1 must be unchanged: %#v", merged.AnalysisConfig.Detectors[1])
	}
}

func TestMerge_DetectorAndCategorizationFiltersShareConfig(t *testing.T) {
	source := threeDetectorJob()
	update := &JobUpdate{
		DetectorUpdates:       []DetectorUpdate{{Index: 0, Description: strPtr("zero")}},
		CategorizationFilters: []string{"bar.*"},
	}
	merged, err := update.Merge(source)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if merged.AnalysisConfig.Detectors[0].Description != "zero" {
		t.Fatalf("detector edit lost: %#v", merged.AnalysisConfig.Detectors[0])
	}
	if got := merged.AnalysisConfig.CategorizationFilters; len(got) != 1 || got[0] != "bar.*" {
		t.Fatalf("filter edit lost: %#v", got)
	}
}

func TestMerge_DetectorIndexOutOfRange(t *testing.T) {
	for _, index := range []int{3, 5, -1} {
		source := threeDetectorJob()
		update := &JobUpdate{
			Description:     strPtr("should not apply"),
			DetectorUpdates: []DetectorUpdate{{Index: index, Description: strPtr("boom")}},
		}
		merged, err := update.Merge(source)
		if err == nil {
			t.Fatalf("index %d: expected error, got job %#v", index, merged)
		}
		if !valerr.Is(err) {
			t.Fatalf("index %d: expected validation error, got %T: %v", index, err, err)
		}
		if merged != nil {
			t.Fatalf("index %d: no job should be produced on failure", index)
		}
		if source.Description != "original description" {
			t.Fatalf("index %d: source was mutated: %#v", index, source)
		}
	}
}

func TestMerge_ResultSharesNothingWithSource(t *testing.T) {
	source := threeDetectorJob()
	merged, err := (&JobUpdate{}).Merge(source)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	merged.AnalysisConfig.Detectors[0].Description = "changed"
	merged.AnalysisConfig.CategorizationFilters[0] = "changed"
	merged.CustomSettings["created_by"] = "changed"
	*merged.RenormalizationWindowDays = 99
	if source.AnalysisConfig.Detectors[0].Description != "d0" ||
		source.AnalysisConfig.CategorizationFilters[0] != "\\[.*\\]" ||
		source.CustomSettings["created_by"] != "ui" ||
		*source.RenormalizationWindowDays != 7 {
		t.Fatalf("merged job aliases source memory: %#v", source)
	}
}

func TestJobUpdate_SparseSerialization(t *testing.T) {
	update := &JobUpdate{Description: strPtr("renamed")}
	raw, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(asMap) != 1 {
		t.Fatalf("absent fields must be omitted, got %#v", asMap)
	}
	if asMap["description"] != "renamed" {
		t.Fatalf("unexpected serialized form: %#v", asMap)
	}
}
