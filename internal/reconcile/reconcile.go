// Package reconcile implements the Table Reconciliation Engine (§4.5), the
// heart of the pipeline: given an existing table snapshot and a newly
// submitted dataset, it computes the append/update/delete delta keyed on a
// synthesized primary key and hands it to the Platform Gateway.
//
// The original's dataframe-centric row diffing is kept in its
// column-oriented spirit but expressed as a pair of hash-indexed row
// collections keyed on the synthesized primary key, per the redesign notes
// — no dataframe library is pulled in just to diff two small in-memory
// tables.
package reconcile

import (
	"log/slog"
	"strings"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
)

// Options configures a single reconciliation call.
type Options struct {
	// PrimaryKey is the ordered list of column names identifying a logical
	// row. Values are space-joined to form each row's UNIQUE_KEY.
	PrimaryKey []string

	// AllowDeletes enables emitting deletes for existing rows absent from
	// desired. Status/error reconciliation always sets this true (§4.7
	// step 5); format-table reconciliation may set it false when a run
	// only appends (not used by the formats in this module, but part of
	// the engine's general contract).
	AllowDeletes bool
}

// Reconcile computes the delta between existing and desired and returns it
// ready to hand to a platform.TableGateway.ApplyDelta call. It does not
// itself talk to the gateway, keeping the diffing logic unit-testable
// without a database.
func Reconcile(existing, desired platform.TableSnapshot, opts Options) (platform.Delta, error) {
	columns := existing.Columns
	if len(columns) == 0 {
		columns = desired.Columns
	}
	if len(desired.Rows) > 0 && !sameColumnSet(columns, desired.Columns) {
		return platform.Delta{}, &errs.SchemaMismatch{
			Detail: "existing and desired column sets differ",
		}
	}

	existingFilled := fillBlanks(existing, columns)
	desiredFilled := fillBlanks(desired, columns)
	desiredReprojected := reproject(desiredFilled, columns)

	existingIndex, existingOrder := indexRows(existingFilled.Rows, existingFilled.Locators, opts.PrimaryKey)
	desiredIndex, desiredOrder := indexDesiredRows(desiredReprojected.Rows, opts.PrimaryKey)

	var delta platform.Delta

	for _, key := range desiredOrder {
		drow := desiredIndex[key]
		if erow, ok := existingIndex[key]; ok {
			if !rowsEqual(erow.row, drow, columns) {
				delta.Updates = append(delta.Updates, platform.RowUpdate{
					Locator: erow.locator,
					Row:     sanitizeRow(drow),
				})
			}
			continue
		}
		delta.Appends = append(delta.Appends, sanitizeRow(drow))
	}

	if opts.AllowDeletes {
		for _, key := range existingOrder {
			if _, ok := desiredIndex[key]; !ok {
				delta.Deletes = append(delta.Deletes, existingIndex[key].locator)
			}
		}
	}

	return delta, nil
}

type existingEntry struct {
	row     platform.Row
	locator platform.RowLocator
}

// indexRows builds a key->row index over existing's rows, warning (but not
// failing) on duplicate keys, which the original spec allows for
// not-expected-but-must-not-crash existing data.
func indexRows(rows []platform.Row, locators []platform.RowLocator, pk []string) (map[string]existingEntry, []string) {
	index := make(map[string]existingEntry, len(rows))
	var order []string
	for i, r := range rows {
		key := uniqueKey(r, pk)
		if _, dup := index[key]; dup {
			slog.Warn("duplicate key in existing table snapshot, keeping first", "key", key)
			continue
		}
		var loc platform.RowLocator
		if i < len(locators) {
			loc = locators[i]
		}
		index[key] = existingEntry{row: r, locator: loc}
		order = append(order, key)
	}
	return index, order
}

// indexDesiredRows builds a key->row index over desired's rows, keeping the
// first row and logging a warning on duplicate keys (§4.5 tie-break).
func indexDesiredRows(rows []platform.Row, pk []string) (map[string]platform.Row, []string) {
	index := make(map[string]platform.Row, len(rows))
	var order []string
	for _, r := range rows {
		key := uniqueKey(r, pk)
		if _, dup := index[key]; dup {
			slog.Warn("duplicate key in desired dataset, keeping first", "key", key)
			continue
		}
		index[key] = r
		order = append(order, key)
	}
	return index, order
}

// uniqueKey materializes the synthesized UNIQUE_KEY: the space-joined
// stringification of the primary key columns.
func uniqueKey(row platform.Row, pk []string) string {
	parts := make([]string, len(pk))
	for i, col := range pk {
		parts[i] = row[col]
	}
	return strings.Join(parts, " ")
}

// fillBlanks fills null/absent cells with the empty string across every
// declared column — the only allowed representation of "no value" in the
// destination (§4.5 step 1).
func fillBlanks(ds platform.TableSnapshot, columns []string) platform.TableSnapshot {
	rows := make([]platform.Row, len(ds.Rows))
	for i, r := range ds.Rows {
		nr := make(platform.Row, len(columns))
		for _, c := range columns {
			nr[c] = r[c]
		}
		rows[i] = nr
	}
	return platform.TableSnapshot{Columns: columns, Rows: rows, Locators: ds.Locators}
}

// reproject reorders desired's column list to match columns; Row is a map
// so no data movement is actually required, but this keeps the Columns
// field, used for ordered serialization elsewhere, aligned with existing.
func reproject(ds platform.TableSnapshot, columns []string) platform.TableSnapshot {
	return platform.TableSnapshot{Columns: columns, Rows: ds.Rows, Locators: ds.Locators}
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}

func rowsEqual(a, b platform.Row, columns []string) bool {
	for _, c := range columns {
		if a[c] != b[c] {
			return false
		}
	}
	return true
}

// sanitizeRow returns a copy of row with integer-sanitation (§4.5 step 8)
// applied to every cell.
func sanitizeRow(row platform.Row) platform.Row {
	out := make(platform.Row, len(row))
	for k, v := range row {
		out[k] = SanitizeInteger(v)
	}
	return out
}
