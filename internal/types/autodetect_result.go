package types

// AutodetectResult is one line of the detection engine's output stream.
// Exactly one of the fields is set per line; a Bucket marks the end of a
// time window and everything received since the previous bucket belongs to it.
type AutodetectResult struct {
	Bucket                       *Bucket                       `json:"bucket,omitempty"`
	Records                      []AnomalyRecord               `json:"records,omitempty"`
	Influencers                  []Influencer                  `json:"influencers,omitempty"`
	PerPartitionMaxProbabilities *PerPartitionMaxProbabilities `json:"partition_normalized_probs,omitempty"`
	CategoryDefinition           *CategoryDefinition           `json:"category_definition,omitempty"`
	ModelSnapshot                *ModelSnapshot                `json:"model_snapshot,omitempty"`
	Quantiles                    *Quantiles                    `json:"quantiles,omitempty"`
	ModelSizeStats               *ModelSizeStats               `json:"model_size_stats,omitempty"`
	ModelDebugOutput             *ModelDebugOutput             `json:"model_debug_output,omitempty"`
}
