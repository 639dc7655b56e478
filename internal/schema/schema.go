// Package schema creates and evolves the persisted-state layout (§6): the
// four fixed tables, the per-center input folders, and the per-format
// output folders and destination tables a freshly bootstrapped project
// needs before the pipeline can run against it.
package schema

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
)

// Fixed table names, per §6's persisted-state layout.
const (
	CenterMappingTable    = "centerMapping"
	ValidationStatusTable = "validationStatus"
	ErrorTrackerTable     = "errorTracker"
	DBMappingTable        = "dbMapping"
)

// CenterMappingColumns, ValidationStatusColumns, ErrorTrackerColumns, and
// DBMappingColumns are the fixed column sets of the four always-present
// tables.
var (
	CenterMappingColumns    = []string{"name", "center", "inputSynId", "release"}
	ValidationStatusColumns = []string{"id", "md5", "status", "name", "center", "modifiedOn", "fileType"}
	ErrorTrackerColumns     = []string{"id", "center", "errors", "name", "fileType"}
	DBMappingColumns        = []string{"Database", "Id"}
)

// DBMappingAnnotationKey is the project annotation holding the db-mapping
// table's id.
const DBMappingAnnotationKey = "dbMapping"

// Bootstrap creates the fixed tables, the per-center input folders under
// projectID, the per-format output folders and destination tables, and
// writes the db-mapping annotation onto the project. It is safe to call
// against an already-bootstrapped project: table and folder creation is
// idempotent.
func Bootstrap(ctx context.Context, objects platform.ObjectGateway, tables platform.TableGateway, reg *registry.Registry, projectID string, centers []string) error {
	if err := tables.CreateTable(ctx, CenterMappingTable, CenterMappingColumns); err != nil {
		return fmt.Errorf("create %s: %w", CenterMappingTable, err)
	}
	if err := tables.CreateTable(ctx, ValidationStatusTable, ValidationStatusColumns); err != nil {
		return fmt.Errorf("create %s: %w", ValidationStatusTable, err)
	}
	if err := tables.CreateTable(ctx, ErrorTrackerTable, ErrorTrackerColumns); err != nil {
		return fmt.Errorf("create %s: %w", ErrorTrackerTable, err)
	}
	if err := tables.CreateTable(ctx, DBMappingTable, DBMappingColumns); err != nil {
		return fmt.Errorf("create %s: %w", DBMappingTable, err)
	}

	for _, center := range centers {
		inputFolderID, err := objects.CreateFolder(ctx, projectID, center)
		if err != nil {
			return fmt.Errorf("create input folder for %s: %w", center, err)
		}
		existing, err := tables.Query(ctx, CenterMappingTable, map[string]string{"center": center})
		if err != nil {
			return fmt.Errorf("query center mapping for %s: %w", center, err)
		}
		mapped := false
		for _, row := range existing.Rows {
			if row["center"] == center {
				mapped = true
			}
		}
		if mapped {
			continue
		}
		if err := appendCenterMapping(ctx, tables, center, inputFolderID); err != nil {
			return fmt.Errorf("record center mapping for %s: %w", center, err)
		}
	}

	for _, format := range reg.All() {
		folderID, err := objects.CreateFolder(ctx, projectID, format.DestinationTable())
		if err != nil {
			return fmt.Errorf("create output folder for %s: %w", format.FiletypeTag(), err)
		}
		if err := tables.CreateTable(ctx, format.DestinationTable(), formatColumns(format)); err != nil {
			return fmt.Errorf("create destination table for %s: %w", format.FiletypeTag(), err)
		}
		if err := objects.SetAnnotation(ctx, folderID, "primaryKey", strings.Join(format.PrimaryKey(), ",")); err != nil {
			return fmt.Errorf("annotate primary key for %s: %w", format.FiletypeTag(), err)
		}
	}

	if err := objects.SetAnnotation(ctx, projectID, DBMappingAnnotationKey, DBMappingTable); err != nil {
		return fmt.Errorf("write db-mapping annotation: %w", err)
	}
	return nil
}

func appendCenterMapping(ctx context.Context, tables platform.TableGateway, center, inputFolderID string) error {
	return tables.ApplyDelta(ctx, CenterMappingTable, platform.Delta{
		Appends: []platform.Row{{
			"name":       center,
			"center":     center,
			"inputSynId": inputFolderID,
			"release":    "true",
		}},
	})
}

// formatColumns returns PrimaryKey() first, since that is the column set a
// format declares authoritatively; a real format adds its own data columns
// beyond the primary key, but the destination table only needs to exist
// with its key columns at bootstrap time — reconciliation grows it to the
// full column set on first write via CreateTable's IF NOT EXISTS semantics
// layered with ALTER, which the gateway does not yet support, so the
// initial column set here is deliberately minimal.
func formatColumns(format registry.FileFormat) []string {
	return format.PrimaryKey()
}

// ReplaceDB implements `replace-db`: archives the table currently mapped to
// format under an `ARCHIVED <date>-<name>` identifier, creates a new
// destination table named tableName, and rewires the db-mapping row for
// the format's filetype to point at it.
//
// The Platform Gateway models tables as rows, not movable container
// entities, so "archive under ARCHIVE_PROJECT_ID" is realized as an
// in-place rename carrying the archive marker rather than a cross-project
// move; the archived table's name is recorded as a "lastArchivedTable"
// annotation on archiveProjectID, but the archived table itself stays where
// it was created.
func ReplaceDB(ctx context.Context, objects platform.ObjectGateway, tables platform.TableGateway, format registry.FileFormat, archiveProjectID, tableName string, now time.Time) error {
	mapping, err := tables.Query(ctx, DBMappingTable, map[string]string{"Database": format.FiletypeTag()})
	if err != nil {
		return fmt.Errorf("query db mapping for %s: %w", format.FiletypeTag(), err)
	}
	if len(mapping.Rows) == 0 {
		return fmt.Errorf("no db mapping found for %s", format.FiletypeTag())
	}
	oldTableName := mapping.Rows[0]["Id"]

	archiveName := fmt.Sprintf("ARCHIVED %s-%s", now.Format("2006-01-02"), oldTableName)
	if err := tables.RenameTable(ctx, oldTableName, archiveName); err != nil {
		return fmt.Errorf("archive table %s: %w", oldTableName, err)
	}

	if err := tables.CreateTable(ctx, tableName, format.PrimaryKey()); err != nil {
		return fmt.Errorf("create replacement table %s: %w", tableName, err)
	}

	if err := objects.SetAnnotation(ctx, archiveProjectID, "lastArchivedTable", archiveName); err != nil {
		return fmt.Errorf("annotate archive project: %w", err)
	}

	if err := tables.ApplyDelta(ctx, DBMappingTable, platform.Delta{
		Deletes: mapping.Locators,
		Appends: []platform.Row{{"Database": format.FiletypeTag(), "Id": tableName}},
	}); err != nil {
		return fmt.Errorf("rewire db mapping for %s: %w", format.FiletypeTag(), err)
	}
	return nil
}
