package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/Sage-Bionetworks/synapsegenie/internal/logging"
	"github.com/Sage-Bionetworks/synapsegenie/internal/pipeline"
	"github.com/Sage-Bionetworks/synapsegenie/internal/schema"
)

// runProcess implements `process --center C [--only-validate] [--delete-old]
// [--format-registry-packages PKG...]` (§6): runs the per-center pipeline
// for the requested center, or — when --center is omitted — every center
// whose release flag is set in the centerMapping table (§9's Open Question:
// an explicit --center overrides the release filter).
func runProcess(args []string, g globals) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	center := fs.String("center", "", "run only this center (overrides the release filter)")
	onlyValidate := fs.Bool("only-validate", false, "skip format-table processing, status/error bookkeeping only")
	deleteOld := fs.Bool("delete-old", false, "wipe the per-center scratch directory before running")
	logDir := fs.String("log-dir", "", "scratch directory for per-center log capture (default: system temp)")
	logFolder := fs.String("log-folder-id", "", "container to upload the per-center log artifact to")
	formatPackages := fs.StringSlice("format-registry-packages", nil, "extension packages to load formats from")
	if err := fs.Parse(args); err != nil {
		return &usageError{msg: err.Error()}
	}

	ctx := logging.WithRunID(context.Background(), "")
	e, err := setupEnv(ctx, resolveFormatPackages(*formatPackages, g.Project))
	if err != nil {
		return err
	}
	defer e.Close()
	ctx = logging.WithRunID(ctx, e.RunID)

	targets, err := resolveCenterTargets(ctx, e, *center)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("no centers to process")
		return nil
	}

	opts := pipeline.Options{
		OnlyValidate: *onlyValidate || e.Config.Pipeline.OnlyValidate,
		DeleteOld:    *deleteOld,
		LogDir:       *logDir,
		LogFolderID:  *logFolder,
		Retry:        e.retryPolicy(),
	}

	limiter := pipeline.NewCenterLimiter(e.Config.Pipeline.MaxConcurrentCenters, e.Config.Pipeline.MaxWaitTime)

	var bar *progressbar.ProgressBar
	if !g.NoColor {
		bar = progressbar.Default(int64(len(targets)), "processing centers")
	}

	runCtx, cancel := context.WithTimeout(ctx, e.Config.Pipeline.RunTimeout)
	defer cancel()

	outcomes := pipeline.RunAll(runCtx, e.Pipeline, limiter, targets, opts)

	anyFatal := false
	for _, outcome := range outcomes {
		if bar != nil {
			_ = bar.Add(1)
		}
		if outcome.Err != nil {
			anyFatal = true
			fmt.Fprintln(os.Stderr, color.RedString("[%s] failed: %v", outcome.Center, outcome.Err))
			continue
		}
		r := outcome.Result
		fmt.Printf("%s %s: %d seen, %d valid, %d invalid, %d duplicate\n",
			color.GreenString("[ok]"), r.Center, r.FilesSeen, r.FilesValid, r.FilesInvalid, len(r.DuplicateIDs))
	}

	if anyFatal {
		return fmt.Errorf("one or more centers failed fatally")
	}
	return nil
}

// resolveCenterTargets reads the centerMapping table and returns the
// centers to run: just the requested one if explicit, otherwise every
// center with release=true.
func resolveCenterTargets(ctx context.Context, e *env, explicitCenter string) ([]pipeline.CenterTarget, error) {
	filter := map[string]string{}
	if explicitCenter != "" {
		filter["center"] = explicitCenter
	}
	ds, err := e.Tables.Query(ctx, schema.CenterMappingTable, filter)
	if err != nil {
		return nil, fmt.Errorf("query center mapping: %w", err)
	}

	var targets []pipeline.CenterTarget
	for _, row := range ds.Rows {
		if explicitCenter == "" && row["release"] != "true" {
			continue
		}
		targets = append(targets, pipeline.CenterTarget{Center: row["center"], ContainerID: row["inputSynId"]})
	}
	if explicitCenter != "" && len(targets) == 0 {
		return nil, fmt.Errorf("center %q not found in centerMapping", explicitCenter)
	}
	return targets, nil
}
