// Command genie-ingest is the CLI surface (§6) for the file validation and
// table reconciliation pipeline: validating a single submission,
// bootstrapping a project's tables and folders, running the per-center
// pipeline, retiring a format's destination table, and printing a center's
// recorded errors.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"github.com/Sage-Bionetworks/synapsegenie/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

// globals holds the flags every subcommand shares.
type globals struct {
	ProjectName string
	ProjectID   string
	Verbose     bool
	NoColor     bool
	Project     *projectConfig
}

func main() {
	if err := godotenv.Overload(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using environment variables")
	}

	var (
		projectName = flag.String("project-name", "", "project display name")
		projectID   = flag.String("project-id", "", "project id (overrides --project-name)")
		verbose     = flag.BoolP("verbose", "v", false, "enable debug logging")
		noColor     = flag.Bool("no-color", false, "disable colored output")
		configPath  = flag.String("config", "genie-project.yaml", "optional project file supplying centers/format-registry-packages defaults")
	)

	flag.SetInterspersed(false)
	flag.Usage = printUsage

	flag.Parse()

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		*noColor = true
	}
	color.NoColor = *noColor

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.Setup(level, "text")

	pc, err := loadProjectConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: ")+err.Error())
		os.Exit(1)
	}

	g := globals{ProjectName: *projectName, ProjectID: *projectID, Verbose: *verbose, NoColor: *noColor, Project: pc}
	if g.ProjectID == "" {
		g.ProjectID = pc.ProjectID
	}
	if g.ProjectName == "" {
		g.ProjectName = pc.ProjectName
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, cmdArgs := args[0], args[1:]

	switch cmd {
	case "validate-single-file":
		err = runValidateSingleFile(cmdArgs, g)
	case "bootstrap-infra":
		err = runBootstrapInfra(cmdArgs, g)
	case "process":
		err = runProcess(cmdArgs, g)
	case "replace-db":
		err = runReplaceDB(cmdArgs, g)
	case "get-file-errors":
		err = runGetFileErrors(cmdArgs, g)
	case "version":
		fmt.Printf("genie-ingest %s (%s)\n", version, commit)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		if _, ok := err.(*usageError); ok {
			fmt.Fprintln(os.Stderr, color.RedString("error: ")+err.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, color.RedString("error: ")+err.Error())
		os.Exit(1)
	}
}

// usageError marks a flag/argument mistake, distinguished from a runtime
// failure so main can choose exit code 2 instead of 1 (§6).
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `genie-ingest - center file validation and table reconciliation pipeline

Usage:
  genie-ingest <command> [options]

Commands:
  validate-single-file FILEPATH... CENTER   Validate one submission unit
  bootstrap-infra                           Create project tables and folders
  process                                   Run the per-center pipeline
  replace-db FILETYPE ARCHIVE_PROJECT_ID TABLE_NAME
                                             Retire and replace a format's destination table
  get-file-errors CENTER                    Print a center's recorded error texts
  version                                   Print version information

Global Options:
  --project-name NAME   project display name
  --project-id ID       project id (overrides --project-name)
  -v, --verbose         enable debug logging
  --no-color            disable colored output

Run 'genie-ingest <command> --help' for command-specific options.
`)
}
