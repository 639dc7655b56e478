package formats

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
)

// CNAFormat handles copy-number-alteration submissions: a single wide file
// with one row per gene (Hugo_Symbol) and one column per sample. It is
// reconciled keyed on CENTER+HUGO_SYMBOL so re-submission replaces a
// center's gene calls wholesale.
type CNAFormat struct{}

var _ registry.FileFormat = CNAFormat{}

func (CNAFormat) FiletypeTag() string { return "cna" }

func (CNAFormat) EntityCount() int { return 1 }

func (CNAFormat) FiletypeMatches(filenames []string) bool {
	if len(filenames) != 1 {
		return false
	}
	return strings.Contains(strings.ToLower(filenames[0]), "data_cna")
}

func (CNAFormat) Read(ctx context.Context, entities []platform.Entity) (platform.TableSnapshot, error) {
	if len(entities) != 1 {
		return platform.TableSnapshot{}, &errs.InvariantViolation{Detail: "cna format requires exactly one entity"}
	}
	ds, err := readTSV(entities[0].Path)
	if err != nil {
		return platform.TableSnapshot{}, &errs.ReadFailure{Path: entities[0].Path, Err: err}
	}
	return upperColumns(ds), nil
}

func (CNAFormat) Validate(ctx context.Context, ds platform.TableSnapshot, kwargs registry.Kwargs) (string, string, error) {
	var errLines []string

	if missing := hasHeaders(ds, []string{"HUGO_SYMBOL"}); len(missing) > 0 {
		errLines = append(errLines, fmt.Sprintf("Missing required column(s): %s", strings.Join(missing, ", ")))
		return strings.Join(errLines, "\n"), "", nil
	}
	if len(ds.Columns) < 2 {
		errLines = append(errLines, "CNA file must contain at least one sample column")
	}
	seen := make(map[string]bool, len(ds.Rows))
	for i, row := range ds.Rows {
		sym := row["HUGO_SYMBOL"]
		if sym == "" {
			errLines = append(errLines, fmt.Sprintf("Row %d: HUGO_SYMBOL must not be blank", i+1))
			continue
		}
		if seen[sym] {
			errLines = append(errLines, fmt.Sprintf("HUGO_SYMBOL %s is duplicated", sym))
		}
		seen[sym] = true
	}

	return strings.Join(errLines, "\n"), "", nil
}

func (CNAFormat) Process(ctx context.Context, ds platform.TableSnapshot, kwargs registry.Kwargs) (platform.TableSnapshot, error) {
	if err := kwargs.Require([]string{"center"}); err != nil {
		return platform.TableSnapshot{}, err
	}
	return withCenterColumn(ds, kwargs["center"]), nil
}

func (CNAFormat) RequiredValidateKwargs() []string { return nil }
func (CNAFormat) RequiredProcessKwargs() []string  { return []string{"center"} }
func (CNAFormat) PrimaryKey() []string             { return []string{"CENTER", "HUGO_SYMBOL"} }
func (CNAFormat) DestinationTable() string         { return "cna" }
