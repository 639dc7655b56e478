package pipeline

import (
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/schema"
	"github.com/Sage-Bionetworks/synapsegenie/internal/statuscache"
)

// statusRowsFromSnapshot converts a raw validationStatus query result into
// the structured rows statuscache/reconcile operate on.
func statusRowsFromSnapshot(ds platform.TableSnapshot) []statuscache.StatusRow {
	rows := make([]statuscache.StatusRow, len(ds.Rows))
	for i, r := range ds.Rows {
		rows[i] = statuscache.StatusRow{
			ID:         r["id"],
			MD5:        r["md5"],
			Status:     statuscache.Status(r["status"]),
			Name:       r["name"],
			Center:     r["center"],
			ModifiedOn: r["modifiedOn"],
			FileType:   r["fileType"],
		}
	}
	return rows
}

func errorRowsFromSnapshot(ds platform.TableSnapshot) []statuscache.ErrorRow {
	rows := make([]statuscache.ErrorRow, len(ds.Rows))
	for i, r := range ds.Rows {
		rows[i] = statuscache.ErrorRow{
			ID:       r["id"],
			Errors:   r["errors"],
			Name:     r["name"],
			FileType: r["fileType"],
			Center:   r["center"],
		}
	}
	return rows
}

func statusRowToPlatformRow(r statuscache.StatusRow) platform.Row {
	return platform.Row{
		"id":         r.ID,
		"md5":        r.MD5,
		"status":     string(r.Status),
		"name":       r.Name,
		"center":     r.Center,
		"modifiedOn": r.ModifiedOn,
		"fileType":   r.FileType,
	}
}

func errorRowToPlatformRow(r statuscache.ErrorRow) platform.Row {
	return platform.Row{
		"id":       r.ID,
		"center":   r.Center,
		"errors":   r.Errors,
		"name":     r.Name,
		"fileType": r.FileType,
	}
}

func desiredStatusSnapshot(rows []statuscache.StatusRow) platform.TableSnapshot {
	ds := platform.TableSnapshot{Columns: schema.ValidationStatusColumns}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, statusRowToPlatformRow(r))
	}
	return ds
}

func desiredErrorSnapshot(rows []statuscache.ErrorRow) platform.TableSnapshot {
	ds := platform.TableSnapshot{Columns: schema.ErrorTrackerColumns}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, errorRowToPlatformRow(r))
	}
	return ds
}
