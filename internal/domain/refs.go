package domain

// Well-known external reference keys written by provisioning steps.
// The map itself is open-ended; these are the keys the current step
// sequences produce.
const (
	RefOrderID     = "order_id"
	RefZoneID      = "cloudflare_zone_id"
	RefNameservers = "cloudflare_nameservers"
	RefAccountID   = "account_id"
	RefExternalID  = "external_id"
	RefError       = "error"
)

// ExternalRefs holds the identifiers returned by provider calls for an
// entity. Identifier keys are append-only while the entity is being
// provisioned: once written they are never overwritten by a later merge,
// so partial progress from an earlier step survives a later failure.
//
// The error key is not an identifier. It is diagnostics for the most
// recent run, so every status transition rewrites it: set when the
// incoming map carries one, cleared otherwise.
type ExternalRefs map[string]string

// Merge returns a copy of r with the keys from incoming added. Keys already
// present in r keep their existing values; last-writer-wins is deliberately
// not supported.
func (r ExternalRefs) Merge(incoming ExternalRefs) ExternalRefs {
	merged := make(ExternalRefs, len(r)+len(incoming))
	for k, v := range incoming {
		merged[k] = v
	}
	for k, v := range r {
		merged[k] = v
	}
	return merged
}

// MergeTransition returns the refs an entity carries after a status
// transition that merges incoming. Identifier keys follow Merge; the error
// key is taken from incoming alone, so a stale error from an earlier run
// never outlives the transition that supersedes it.
func (r ExternalRefs) MergeTransition(incoming ExternalRefs) ExternalRefs {
	merged := r.Merge(incoming)
	if msg, ok := incoming[RefError]; ok {
		merged[RefError] = msg
	} else {
		delete(merged, RefError)
	}
	return merged
}

// Has reports whether the given key is present.
func (r ExternalRefs) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Clone returns an independent copy of the map. A nil receiver yields an
// empty, non-nil map so callers can merge into the result safely.
func (r ExternalRefs) Clone() ExternalRefs {
	cloned := make(ExternalRefs, len(r))
	for k, v := range r {
		cloned[k] = v
	}
	return cloned
}
