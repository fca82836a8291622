package sync

import (
	"sort"

	"github.com/goliatone/go-vss/core"
)

// Plan compares a remote listing with locally known versions.
type Plan struct {
	// Fetch holds keys that are new remotely or carry a higher remote version.
	Fetch []core.KeyVersion
	// LocalAhead holds keys whose local version is higher than the remote one.
	LocalAhead []core.KeyVersion
	// LocalOnly holds keys known locally but absent from the listing.
	LocalOnly []string
	// UpToDate counts keys whose versions match.
	UpToDate int
}

func (p Plan) Empty() bool {
	return len(p.Fetch) == 0 && len(p.LocalAhead) == 0 && len(p.LocalOnly) == 0
}

// NewPlan is pure: it performs no I/O. Output slices are sorted by key.
func NewPlan(remote []core.KeyVersion, local map[string]uint32) Plan {
	plan := Plan{
		Fetch:      []core.KeyVersion{},
		LocalAhead: []core.KeyVersion{},
		LocalOnly:  []string{},
	}
	seen := make(map[string]struct{}, len(remote))
	for _, entry := range remote {
		if _, dup := seen[entry.Key]; dup {
			continue
		}
		seen[entry.Key] = struct{}{}

		known, ok := local[entry.Key]
		switch {
		case !ok || entry.Version > known:
			plan.Fetch = append(plan.Fetch, entry)
		case entry.Version < known:
			plan.LocalAhead = append(plan.LocalAhead, core.KeyVersion{Key: entry.Key, Version: known})
		default:
			plan.UpToDate++
		}
	}
	for key := range local {
		if _, ok := seen[key]; !ok {
			plan.LocalOnly = append(plan.LocalOnly, key)
		}
	}

	sort.Slice(plan.Fetch, func(i, j int) bool { return plan.Fetch[i].Key < plan.Fetch[j].Key })
	sort.Slice(plan.LocalAhead, func(i, j int) bool { return plan.LocalAhead[i].Key < plan.LocalAhead[j].Key })
	sort.Strings(plan.LocalOnly)
	return plan
}
