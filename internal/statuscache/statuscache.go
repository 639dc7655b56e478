// Package statuscache implements the Status Cache & Reuse decision (§4.4):
// given the existing ValidationStatus/ErrorTracker snapshot and a
// submission unit's entities, decide whether a full revalidation is
// necessary or whether the cached outcome may be reused verbatim.
package statuscache

import (
	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
)

// Status is the two valid values a StatusRow's status column holds.
type Status string

const (
	Validated Status = "VALIDATED"
	Invalid   Status = "INVALID"
)

// StatusRow mirrors one row of the validationStatus table (§3).
type StatusRow struct {
	ID         string
	MD5        string
	Status     Status
	Name       string
	Center     string
	ModifiedOn string
	FileType   string
}

// ErrorRow mirrors one row of the errorTracker table (§3).
type ErrorRow struct {
	ID       string
	Errors   string
	Name     string
	FileType string
	Center   string
}

// Snapshot is the existing status/error state for one center, indexed by
// entity id for O(1) lookup during the per-submission-unit decision.
type Snapshot struct {
	Status map[string]StatusRow
	Errors map[string]ErrorRow
}

// NewSnapshot builds a Snapshot from the rows returned by a status/error
// table query.
func NewSnapshot(statusRows []StatusRow, errorRows []ErrorRow) Snapshot {
	s := Snapshot{
		Status: make(map[string]StatusRow, len(statusRows)),
		Errors: make(map[string]ErrorRow, len(errorRows)),
	}
	for _, r := range statusRows {
		s.Status[r.ID] = r
	}
	for _, r := range errorRows {
		s.Errors[r.ID] = r
	}
	return s
}

// Decision is the outcome of evaluating one submission unit's entities
// against the snapshot.
type Decision struct {
	Revalidate bool
	// Cached holds the per-entity prior status/error to reuse when
	// Revalidate is false, aligned to the entities passed in.
	Cached []CachedEntity
}

// CachedEntity carries the previously recorded status (and error text, if
// any) for one entity, for reuse without rerunning the validator.
type CachedEntity struct {
	Entity platform.Entity
	Status StatusRow
	Error  ErrorRow // zero value if the entity was previously VALIDATED
}

// Evaluate implements the §4.4 decision rule: revalidate iff any entity in
// the unit needs it, evaluated OR-across-entities in the order listed.
func Evaluate(entities []platform.Entity, snap Snapshot) (Decision, error) {
	if len(entities) > 2 {
		return Decision{}, &errs.InvariantViolation{Detail: "at most two entities per submission unit"}
	}

	revalidate := false
	cached := make([]CachedEntity, len(entities))

	for i, e := range entities {
		row, hasStatus := snap.Status[e.ID]

		switch {
		case !hasStatus:
			revalidate = true
		case row.MD5 != e.MD5 || row.Name != e.Name:
			revalidate = true
		case row.Status == Invalid:
			if _, hasError := snap.Errors[e.ID]; !hasError {
				revalidate = true
			}
		}

		cached[i] = CachedEntity{Entity: e, Status: row}
		if row.Status == Invalid {
			cached[i].Error = snap.Errors[e.ID]
		}
	}

	return Decision{Revalidate: revalidate, Cached: cached}, nil
}
