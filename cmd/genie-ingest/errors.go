package main

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/Sage-Bionetworks/synapsegenie/internal/schema"
)

// runGetFileErrors implements `get-file-errors CENTER` (§6): prints the
// concatenated error texts recorded for that center.
func runGetFileErrors(args []string, g globals) error {
	fs := flag.NewFlagSet("get-file-errors", flag.ContinueOnError)
	formatPackages := fs.StringSlice("format-registry-packages", nil, "extension packages to load formats from")
	if err := fs.Parse(args); err != nil {
		return &usageError{msg: err.Error()}
	}

	positional := fs.Args()
	if len(positional) != 1 {
		return usageErrorf("usage: get-file-errors CENTER")
	}
	center := positional[0]

	ctx := context.Background()
	e, err := setupEnv(ctx, resolveFormatPackages(*formatPackages, g.Project))
	if err != nil {
		return err
	}
	defer e.Close()

	ds, err := e.Tables.Query(ctx, schema.ErrorTrackerTable, map[string]string{"center": center})
	if err != nil {
		return fmt.Errorf("query error tracker: %w", err)
	}

	if len(ds.Rows) == 0 {
		fmt.Printf("no errors recorded for center %s\n", center)
		return nil
	}
	for _, row := range ds.Rows {
		fmt.Printf("--- %s (%s) ---\n%s\n\n", row["name"], row["fileType"], row["errors"])
	}
	return nil
}
