package types

// Job is an immutable configuration snapshot for one anomaly detection job.
// A published Job is never mutated in place; configuration changes produce a
// replacement snapshot via JobUpdate.Merge.
type Job struct {
	ID                         string                 `json:"job_id"`
	Description                string                 `json:"description,omitempty"`
	AnalysisConfig             AnalysisConfig         `json:"analysis_config"`
	AnalysisLimits             *AnalysisLimits        `json:"analysis_limits,omitempty"`
	ModelDebugConfig           *ModelDebugConfig      `json:"model_debug_config,omitempty"`
	RenormalizationWindowDays  *int64                 `json:"renormalization_window_days,omitempty"`
	BackgroundPersistInterval  *int64                 `json:"background_persist_interval,omitempty"`
	ModelSnapshotRetentionDays *int64                 `json:"model_snapshot_retention_days,omitempty"`
	ResultsRetentionDays       *int64                 `json:"results_retention_days,omitempty"`
	CustomSettings             map[string]interface{} `json:"custom_settings,omitempty"`
	ModelSnapshotID            string                 `json:"model_snapshot_id,omitempty"`
}

// AnalysisConfig describes what the detection engine looks for.
type AnalysisConfig struct {
	BucketSpan              *int64     `json:"bucket_span,omitempty"`
	Detectors               []Detector `json:"detectors"`
	Influencers             []string   `json:"influencers,omitempty"`
	CategorizationFieldName string     `json:"categorization_field_name,omitempty"`
	CategorizationFilters   []string   `json:"categorization_filters,omitempty"`
}

type Detector struct {
	Description        string          `json:"detector_description,omitempty"`
	Function           string          `json:"function"`
	FieldName          string          `json:"field_name,omitempty"`
	ByFieldName        string          `json:"by_field_name,omitempty"`
	OverFieldName      string          `json:"over_field_name,omitempty"`
	PartitionFieldName string          `json:"partition_field_name,omitempty"`
	UseNull            bool            `json:"use_null,omitempty"`
	Rules              []DetectionRule `json:"detector_rules,omitempty"`
}

// DetectionRule suppresses or alters detector output when its conditions hold.
type DetectionRule struct {
	RuleAction           string          `json:"rule_action,omitempty"`
	TargetFieldName      string          `json:"target_field_name,omitempty"`
	TargetFieldValue     string          `json:"target_field_value,omitempty"`
	ConditionsConnective string          `json:"conditions_connective,omitempty"`
	Conditions           []RuleCondition `json:"rule_conditions,omitempty"`
}

type RuleCondition struct {
	ConditionType string   `json:"condition_type"`
	FieldName     string   `json:"field_name,omitempty"`
	FieldValue    string   `json:"field_value,omitempty"`
	Operator      string   `json:"operator,omitempty"`
	Threshold     *float64 `json:"value,omitempty"`
}

type AnalysisLimits struct {
	ModelMemoryLimitMB          *int64 `json:"model_memory_limit,omitempty"`
	CategorizationExamplesLimit *int64 `json:"categorization_examples_limit,omitempty"`
}

// ModelDebugConfig turns on per-bucket debug output for matching series.
type ModelDebugConfig struct {
	BoundsPercentile *float64 `json:"bounds_percentile,omitempty"`
	Terms            string   `json:"terms,omitempty"`
}

// Clone returns a deep copy. The copy shares nothing mutable with the
// receiver, so callers can build a new snapshot without touching the source.
func (j *Job) Clone() *Job {
	out := *j
	out.AnalysisConfig = j.AnalysisConfig.Clone()
	if j.AnalysisLimits != nil {
		limits := *j.AnalysisLimits
		limits.ModelMemoryLimitMB = cloneInt64(j.AnalysisLimits.ModelMemoryLimitMB)
		limits.CategorizationExamplesLimit = cloneInt64(j.AnalysisLimits.CategorizationExamplesLimit)
		out.AnalysisLimits = &limits
	}
	if j.ModelDebugConfig != nil {
		debug := *j.ModelDebugConfig
		debug.BoundsPercentile = cloneFloat64(j.ModelDebugConfig.BoundsPercentile)
		out.ModelDebugConfig = &debug
	}
	out.RenormalizationWindowDays = cloneInt64(j.RenormalizationWindowDays)
	out.BackgroundPersistInterval = cloneInt64(j.BackgroundPersistInterval)
	out.ModelSnapshotRetentionDays = cloneInt64(j.ModelSnapshotRetentionDays)
	out.ResultsRetentionDays = cloneInt64(j.ResultsRetentionDays)
	if j.CustomSettings != nil {
		settings := make(map[string]interface{}, len(j.CustomSettings))
		for k, v := range j.CustomSettings {
			settings[k] = v
		}
		out.CustomSettings = settings
	}
	return &out
}

func (c AnalysisConfig) Clone() AnalysisConfig {
	out := c
	out.BucketSpan = cloneInt64(c.BucketSpan)
	if c.Detectors != nil {
		out.Detectors = make([]Detector, len(c.Detectors))
		for i, d := range c.Detectors {
			out.Detectors[i] = d.Clone()
		}
	}
	out.Influencers = cloneStrings(c.Influencers)
	out.CategorizationFilters = cloneStrings(c.CategorizationFilters)
	return out
}

func (d Detector) Clone() Detector {
	out := d
	if d.Rules != nil {
		out.Rules = make([]DetectionRule, len(d.Rules))
		for i, r := range d.Rules {
			out.Rules[i] = r.Clone()
		}
	}
	return out
}

func (r DetectionRule) Clone() DetectionRule {
	out := r
	if r.Conditions != nil {
		out.Conditions = make([]RuleCondition, len(r.Conditions))
		for i, c := range r.Conditions {
			cc := c
			cc.Threshold = cloneFloat64(c.Threshold)
			out.Conditions[i] = cc
		}
	}
	return out
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat64(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneStrings(v []string) []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}
