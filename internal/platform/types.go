// Package platform adapts the pipeline to the backing data platform: a
// container/entity object store and a row-level table service. Both
// adapters are thin — the interesting logic lives in reconcile, validate,
// and pipeline, which depend only on the interfaces declared here.
package platform

import "time"

// Entity is a platform object identified by an opaque id. (id, md5, name)
// uniquely determines the object contents relevant to validation caching.
type Entity struct {
	ID          string
	Name        string
	MD5         string
	Size        int64
	CreatedBy   string
	ModifiedBy  string
	ModifiedOn  time.Time
	Path        string // local filesystem path once fetched; empty until FetchEntity downloads it
	Annotations map[string]string
}

// FiletypeHint returns the explicit filetype annotation on the entity, if
// any. The Validation Helper skips format detection when this is set.
func (e Entity) FiletypeHint() string {
	return e.Annotations["filetype"]
}

// RowLocator identifies an existing row in a destination table by the row
// id and row version the Table Gateway reports for it; the two halves are
// carried unchanged from the query into the update or delete that targets
// the row.
type RowLocator struct {
	RowID      string
	RowVersion string
}

// Row is one logical row of a table, keyed by column name. Nil/absent
// values are represented by the empty string, the only allowed
// representation of "no value" in destination tables.
type Row map[string]string

// TableSnapshot is a query result: an ordered column list, the rows
// returned, and — when the snapshot came from an existing destination
// table — the row locator aligned to each row. Locators is nil for a
// freshly-built "desired" snapshot that has no backing rows yet.
type TableSnapshot struct {
	Columns  []string
	Rows     []Row
	Locators []RowLocator
}

// RowUpdate pairs a new row value with the locator of the existing row it
// replaces.
type RowUpdate struct {
	Locator RowLocator
	Row     Row
}

// Delta is the append/update/delete set the Reconciliation Engine computes
// and the Table Gateway applies in one call. The apply is not atomic: a
// failure partway through leaves the rows already written in place.
type Delta struct {
	Appends []Row
	Updates []RowUpdate
	Deletes []RowLocator
}

// Empty reports whether the delta has no effect.
func (d Delta) Empty() bool {
	return len(d.Appends) == 0 && len(d.Updates) == 0 && len(d.Deletes) == 0
}
