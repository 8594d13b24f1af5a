package types

import (
	"github.com/driftwatch/anomaly-backend/internal/platform/valerr"
)

// JobUpdate is a sparse partial update of a Job. A nil field means "leave
// unchanged"; a set field replaces the corresponding Job field wholesale.
// A JobUpdate has no identity of its own and is immutable once built.
type JobUpdate struct {
	Description                *string                `json:"description,omitempty"`
	DetectorUpdates            []DetectorUpdate       `json:"detectors,omitempty"`
	ModelDebugConfig           *ModelDebugConfig      `json:"model_debug_config,omitempty"`
	AnalysisLimits             *AnalysisLimits        `json:"analysis_limits,omitempty"`
	RenormalizationWindowDays  *int64                 `json:"renormalization_window_days,omitempty"`
	BackgroundPersistInterval  *int64                 `json:"background_persist_interval,omitempty"`
	ModelSnapshotRetentionDays *int64                 `json:"model_snapshot_retention_days,omitempty"`
	ResultsRetentionDays       *int64                 `json:"results_retention_days,omitempty"`
	CategorizationFilters      []string               `json:"categorization_filters,omitempty"`
	CustomSettings             map[string]interface{} `json:"custom_settings,omitempty"`
	ModelSnapshotID            *string                `json:"model_snapshot_id,omitempty"`
}

// DetectorUpdate edits one detector of the target job, addressed by its
// zero-based position in the analysis config.
type DetectorUpdate struct {
	Index       int             `json:"index"`
	Description *string         `json:"description,omitempty"`
	Rules       []DetectionRule `json:"rules,omitempty"`
}

// Merge applies the update onto source and returns a new Job. The source is
// never touched. Detector indexes are validated up front, so a failed merge
// leaves no partially applied state anywhere.
func (u *JobUpdate) Merge(source *Job) (*Job, error) {
	numDetectors := len(source.AnalysisConfig.Detectors)
	for _, du := range u.DetectorUpdates {
		if du.Index < 0 || du.Index >= numDetectors {
			return nil, valerr.New("detectors", "detector index %d is out of range for job %q with %d detectors",
				du.Index, source.ID, numDetectors)
		}
	}

	out := source.Clone()
	if u.Description != nil {
		out.Description = *u.Description
	}

	// Detector edits and categorization filters both rewrite the analysis
	// config; they are applied to the same cloned config so one update can
	// carry both.
	for _, du := range u.DetectorUpdates {
		detector := &out.AnalysisConfig.Detectors[du.Index]
		if du.Description != nil {
			detector.Description = *du.Description
		}
		if du.Rules != nil {
			rules := make([]DetectionRule, len(du.Rules))
			for i, r := range du.Rules {
				rules[i] = r.Clone()
			}
			detector.Rules = rules
		}
	}
	if u.CategorizationFilters != nil {
		out.AnalysisConfig.CategorizationFilters = cloneStrings(u.CategorizationFilters)
	}

	if u.ModelDebugConfig != nil {
		debug := *u.ModelDebugConfig
		debug.BoundsPercentile = cloneFloat64(u.ModelDebugConfig.BoundsPercentile)
		out.ModelDebugConfig = &debug
	}
	if u.AnalysisLimits != nil {
		limits := *u.AnalysisLimits
		limits.ModelMemoryLimitMB = cloneInt64(u.AnalysisLimits.ModelMemoryLimitMB)
		limits.CategorizationExamplesLimit = cloneInt64(u.AnalysisLimits.CategorizationExamplesLimit)
		out.AnalysisLimits = &limits
	}
	if u.RenormalizationWindowDays != nil {
		out.RenormalizationWindowDays = cloneInt64(u.RenormalizationWindowDays)
	}
	if u.BackgroundPersistInterval != nil {
		out.BackgroundPersistInterval = cloneInt64(u.BackgroundPersistInterval)
	}
	if u.ModelSnapshotRetentionDays != nil {
		out.ModelSnapshotRetentionDays = cloneInt64(u.ModelSnapshotRetentionDays)
	}
	if u.ResultsRetentionDays != nil {
		out.ResultsRetentionDays = cloneInt64(u.ResultsRetentionDays)
	}
	if u.CustomSettings != nil {
		settings := make(map[string]interface{}, len(u.CustomSettings))
		for k, v := range u.CustomSettings {
			settings[k] = v
		}
		out.CustomSettings = settings
	}
	if u.ModelSnapshotID != nil {
		out.ModelSnapshotID = *u.ModelSnapshotID
	}
	return out, nil
}

// TouchesDetectionEngine reports whether the update changes configuration the
// running detection process must be told about.
func (u *JobUpdate) TouchesDetectionEngine() bool {
	return u.ModelDebugConfig != nil || len(u.DetectorUpdates) > 0
}
