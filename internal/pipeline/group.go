package pipeline

import (
	"strings"

	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
	"github.com/Sage-Bionetworks/synapsegenie/internal/validate"
)

// groupSubmissionUnits partitions a center's uploaded entities into
// submission units, one per format's EntityCount(). Only the clinical
// format declares EntityCount()==2 (a paired patient/sample upload); every
// other entity is its own single-file unit. Pairing is done by filename
// substring match against every registered multi-entity format rather than
// hardcoding "patient"/"sample", so a newly registered two-file format is
// grouped the same way without pipeline changes.
func groupSubmissionUnits(entities []platform.Entity, reg *registry.Registry, center string) []validate.SubmissionUnit {
	remaining := make([]platform.Entity, len(entities))
	copy(remaining, entities)

	var units []validate.SubmissionUnit

	for _, format := range reg.All() {
		if format.EntityCount() <= 1 {
			continue
		}
		for {
			group, rest := pickGroup(remaining, format)
			if group == nil {
				break
			}
			units = append(units, validate.SubmissionUnit{Entities: group, Center: center})
			remaining = rest
		}
	}

	for _, e := range remaining {
		units = append(units, validate.SubmissionUnit{Entities: []platform.Entity{e}, Center: center})
	}

	return units
}

// pickGroup finds the first combination of format.EntityCount() entities in
// remaining whose names satisfy format.FiletypeMatches, returning that group
// and the remainder. It returns (nil, remaining) if no such group exists.
func pickGroup(remaining []platform.Entity, format registry.FileFormat) ([]platform.Entity, []platform.Entity) {
	n := format.EntityCount()
	names := make([]string, len(remaining))
	for i, e := range remaining {
		names[i] = e.Name
	}

	indices := combinations(len(remaining), n)
	for _, idx := range indices {
		candidateNames := make([]string, n)
		candidates := make([]platform.Entity, n)
		for i, ix := range idx {
			candidateNames[i] = names[ix]
			candidates[i] = remaining[ix]
		}
		if format.FiletypeMatches(candidateNames) {
			rest := make([]platform.Entity, 0, len(remaining)-n)
			taken := make(map[int]bool, n)
			for _, ix := range idx {
				taken[ix] = true
			}
			for i, e := range remaining {
				if !taken[i] {
					rest = append(rest, e)
				}
			}
			return candidates, rest
		}
	}
	return nil, remaining
}

// combinations returns every n-length index combination of [0, size).
func combinations(size, n int) [][]int {
	if n > size || n <= 0 {
		return nil
	}
	var out [][]int
	var build func(start int, chosen []int)
	build = func(start int, chosen []int) {
		if len(chosen) == n {
			cp := make([]int, n)
			copy(cp, chosen)
			out = append(out, cp)
			return
		}
		for i := start; i < size; i++ {
			build(i+1, append(chosen, i))
		}
	}
	build(0, nil)
	return out
}

// explicitFiletypeFor returns unit with ExplicitFiletype set to explicit
// (trimmed), forcing that filetype rather than relying on name-based
// detection.
func explicitFiletypeFor(unit validate.SubmissionUnit, explicit string) validate.SubmissionUnit {
	unit.ExplicitFiletype = strings.TrimSpace(explicit)
	return unit
}
