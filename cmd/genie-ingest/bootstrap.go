package main

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/Sage-Bionetworks/synapsegenie/internal/schema"
)

// runBootstrapInfra implements `bootstrap-infra (--project-name N |
// --project-id P) --centers C... [--format-registry-packages PKG...]`
// (§6): creates the four fixed tables, the per-center input folders, the
// per-format output folders and destination tables, and writes the
// db-mapping annotation onto the project.
func runBootstrapInfra(args []string, g globals) error {
	fs := flag.NewFlagSet("bootstrap-infra", flag.ContinueOnError)
	centers := fs.StringSlice("centers", nil, "centers to provision input folders for")
	formatPackages := fs.StringSlice("format-registry-packages", nil, "extension packages to load formats from")
	if err := fs.Parse(args); err != nil {
		return &usageError{msg: err.Error()}
	}
	requestedCenters := *centers
	if len(requestedCenters) == 0 {
		requestedCenters = g.Project.Centers
	}
	if len(requestedCenters) == 0 {
		return usageErrorf("--centers is required (or set centers: in the project file)")
	}

	projectID, err := resolveProjectID(g)
	if err != nil {
		return err
	}

	ctx := context.Background()
	e, err := setupEnv(ctx, resolveFormatPackages(*formatPackages, g.Project))
	if err != nil {
		return err
	}
	defer e.Close()

	if err := schema.Bootstrap(ctx, e.Objects, e.Tables, e.Registry, projectID, requestedCenters); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	fmt.Printf("bootstrapped project %s with %d centers and %d formats\n", projectID, len(requestedCenters), e.Registry.Count())
	return nil
}
