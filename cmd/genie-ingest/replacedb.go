package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Sage-Bionetworks/synapsegenie/internal/schema"
)

// runReplaceDB implements `replace-db FILETYPE ARCHIVE_PROJECT_ID
// TABLE_NAME` (§6): renames the table currently mapped to FILETYPE in place
// with a name prefixed `ARCHIVED <date>-`, records that name as an
// annotation on the archive project, creates a new destination table named
// TABLE_NAME, and rewires the db-mapping to it. The archived table is not
// moved into the archive project.
func runReplaceDB(args []string, g globals) error {
	fs := flag.NewFlagSet("replace-db", flag.ContinueOnError)
	formatPackages := fs.StringSlice("format-registry-packages", nil, "extension packages to load formats from")
	if err := fs.Parse(args); err != nil {
		return &usageError{msg: err.Error()}
	}

	positional := fs.Args()
	if len(positional) != 3 {
		return usageErrorf("usage: replace-db FILETYPE ARCHIVE_PROJECT_ID TABLE_NAME")
	}
	filetype, archiveProjectID, tableName := positional[0], positional[1], positional[2]

	ctx := context.Background()
	e, err := setupEnv(ctx, resolveFormatPackages(*formatPackages, g.Project))
	if err != nil {
		return err
	}
	defer e.Close()

	format, ok := e.Registry.Get(filetype)
	if !ok {
		return usageErrorf("unknown filetype %q", filetype)
	}

	if err := schema.ReplaceDB(ctx, e.Objects, e.Tables, format, archiveProjectID, tableName, time.Now()); err != nil {
		return fmt.Errorf("replace-db: %w", err)
	}

	fmt.Printf("replaced destination table for %s with %s; archived the old table in place and annotated %s\n", filetype, tableName, archiveProjectID)
	return nil
}
