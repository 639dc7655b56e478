package formats

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
)

// MAFFormat handles mutation-annotation-format submissions: a single file,
// keyed by the tuple of center/sample/chromosome/position so that rows from
// different samples or centers never collide.
type MAFFormat struct{}

var _ registry.FileFormat = MAFFormat{}

func (MAFFormat) FiletypeTag() string { return "maf" }

func (MAFFormat) EntityCount() int { return 1 }

func (MAFFormat) FiletypeMatches(filenames []string) bool {
	if len(filenames) != 1 {
		return false
	}
	lower := strings.ToLower(filenames[0])
	return strings.Contains(lower, "data_mutations_extended") || strings.HasSuffix(lower, "_maf.txt")
}

var mafRequiredColumns = []string{"HUGO_SYMBOL", "CHROMOSOME", "START_POSITION", "TUMOR_SAMPLE_BARCODE"}

func (MAFFormat) Read(ctx context.Context, entities []platform.Entity) (platform.TableSnapshot, error) {
	if len(entities) != 1 {
		return platform.TableSnapshot{}, &errs.InvariantViolation{Detail: "maf format requires exactly one entity"}
	}
	ds, err := readTSV(entities[0].Path)
	if err != nil {
		return platform.TableSnapshot{}, &errs.ReadFailure{Path: entities[0].Path, Err: err}
	}
	return upperColumns(ds), nil
}

func (MAFFormat) Validate(ctx context.Context, ds platform.TableSnapshot, kwargs registry.Kwargs) (string, string, error) {
	var errLines, warnLines []string

	if missing := hasHeaders(ds, mafRequiredColumns); len(missing) > 0 {
		errLines = append(errLines, fmt.Sprintf("Missing required column(s): %s", strings.Join(missing, ", ")))
		return strings.Join(errLines, "\n"), "", nil
	}

	for i, row := range ds.Rows {
		if row["TUMOR_SAMPLE_BARCODE"] == "" {
			errLines = append(errLines, fmt.Sprintf("Row %d: TUMOR_SAMPLE_BARCODE must not be blank", i+1))
		}
		if row["HUGO_SYMBOL"] == "" {
			warnLines = append(warnLines, fmt.Sprintf("Row %d: HUGO_SYMBOL is blank", i+1))
		}
	}

	return strings.Join(errLines, "\n"), strings.Join(warnLines, "\n"), nil
}

func (MAFFormat) Process(ctx context.Context, ds platform.TableSnapshot, kwargs registry.Kwargs) (platform.TableSnapshot, error) {
	if err := kwargs.Require([]string{"center"}); err != nil {
		return platform.TableSnapshot{}, err
	}
	return withCenterColumn(ds, kwargs["center"]), nil
}

func (MAFFormat) RequiredValidateKwargs() []string { return nil }
func (MAFFormat) RequiredProcessKwargs() []string  { return []string{"center"} }
func (MAFFormat) PrimaryKey() []string {
	return []string{"CENTER", "TUMOR_SAMPLE_BARCODE", "CHROMOSOME", "START_POSITION"}
}
func (MAFFormat) DestinationTable() string { return "maf" }
