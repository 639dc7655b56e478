// Package duplicate implements Duplicate-filename Detection (§4.6): after
// per-file validation, every status row sharing a name with another status
// row is forced INVALID with the canonical duplicate-filename message, and
// any previously recorded duplicate error is purged once its file is no
// longer duplicated. This runs before the Table Reconciliation Engine is
// invoked on the status and error tables.
package duplicate

import (
	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/statuscache"
)

// Detect scans status for rows sharing a name, marks every such row INVALID
// with the canonical duplicate-filename message, and returns the updated
// status and error rows. errorRows is the error table's current contents,
// used to strip stale duplicate-filename entries for files that are no
// longer duplicated.
func Detect(status []statuscache.StatusRow, errorRows []statuscache.ErrorRow) ([]statuscache.StatusRow, []statuscache.ErrorRow) {
	counts := make(map[string]int, len(status))
	for _, row := range status {
		counts[row.Name]++
	}

	duplicateIDs := make(map[string]bool)
	newStatus := make([]statuscache.StatusRow, len(status))
	for i, row := range status {
		if counts[row.Name] > 1 {
			row.Status = statuscache.Invalid
			duplicateIDs[row.ID] = true
		}
		newStatus[i] = row
	}

	var newErrors []statuscache.ErrorRow
	for _, row := range errorRows {
		if duplicateIDs[row.ID] {
			continue
		}
		if row.Errors == errs.DuplicateFilename {
			// Stale duplicate-error row whose file is no longer duplicated;
			// drop it rather than carry it forward.
			continue
		}
		newErrors = append(newErrors, row)
	}

	for _, row := range newStatus {
		if !duplicateIDs[row.ID] {
			continue
		}
		newErrors = append(newErrors, statuscache.ErrorRow{
			ID:       row.ID,
			Errors:   errs.DuplicateFilename,
			Name:     row.Name,
			FileType: row.FileType,
			Center:   row.Center,
		})
	}

	return newStatus, newErrors
}
