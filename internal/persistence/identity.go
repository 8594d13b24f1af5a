package persistence

import "github.com/driftwatch/anomaly-backend/internal/types"

// IdentityPolicy says how a document kind gets its id. Overwrite semantics
// hang off this choice: deterministic ids let renormalization rewrite a
// document in place, generated ids make a kind append-only.
type IdentityPolicy int

const (
	// IdentityDeterministic ids are derived from stable document fields.
	IdentityDeterministic IdentityPolicy = iota
	// IdentityCallerAssigned ids are carried by the document itself and
	// must be stable across renormalization passes.
	IdentityCallerAssigned
	// IdentityGenerated ids are fresh UUIDs; nothing ever overwrites them.
	IdentityGenerated
)

func (p IdentityPolicy) String() string {
	switch p {
	case IdentityDeterministic:
		return "deterministic"
	case IdentityCallerAssigned:
		return "caller_assigned"
	case IdentityGenerated:
		return "generated"
	}
	return "unknown"
}

// identityPolicies is the per-kind identity table. ModelSizeStats is listed
// deterministic for its "latest" slot; PersistModelSizeStats additionally
// writes a historical copy under a generated id.
var identityPolicies = map[string]IdentityPolicy{
	types.ResultTypeBucket:                    IdentityDeterministic,
	types.ResultTypeBucketInfluencer:          IdentityDeterministic,
	types.ResultTypeRecord:                    IdentityCallerAssigned,
	types.ResultTypeInfluencer:                IdentityCallerAssigned,
	types.ResultTypePartitionMaxProbabilities: IdentityCallerAssigned,
	types.ResultTypeCategoryDefinition:        IdentityDeterministic,
	types.ResultTypeQuantiles:                 IdentityDeterministic,
	types.ResultTypeModelSnapshot:             IdentityDeterministic,
	types.ResultTypeModelSizeStats:            IdentityDeterministic,
	types.ResultTypeModelDebugOutput:          IdentityGenerated,
}

// IdentityPolicyFor returns the identity policy for a document kind.
func IdentityPolicyFor(kind string) (IdentityPolicy, bool) {
	p, ok := identityPolicies[kind]
	return p, ok
}
