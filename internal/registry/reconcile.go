package registry

import "github.com/vmelnikov/statadmin/model"

// Reconcile decides whose configuration wins when a counter is re-registered.
// The persisted record is the alpha side: its status always beats the freshly
// supplied default, and the returned delta carries only the option entries
// where the persisted value disagrees with the proposed one.
func Reconcile(persisted model.Counter, proposed model.Options) (model.Status, model.Options) {
	return persisted.Status, DeltaOptions(persisted.Options, proposed)
}

// DeltaOptions returns alpha's value for every key present in both maps with
// differing values. Keys present only in beta are dropped; keys that already
// agree produce no entry.
func DeltaOptions(alpha, beta model.Options) model.Options {
	delta := make(model.Options)
	for k, av := range alpha {
		bv, ok := beta[k]
		if ok && bv != av {
			delta[k] = av
		}
	}
	return delta
}

// MergeOptions returns the union of both maps with alpha winning on
// conflicts. Keys present only in beta survive the merge, so settings that
// were never in conflict are not silently dropped.
func MergeOptions(alpha, beta model.Options) model.Options {
	merged := beta.Clone()
	for k, v := range alpha {
		merged[k] = v
	}
	return merged
}
