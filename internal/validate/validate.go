// Package validate implements the Validation Helper (§4.3): given the
// entities making up one submission unit, it determines the filetype,
// dispatches to the matching format, and assembles a human-facing report.
package validate

import (
	"context"
	"strings"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
	"github.com/Sage-Bionetworks/synapsegenie/internal/registry"
)

// SuccessBanner is the canonical report text for a fully valid submission,
// wire-compatible with the original's collect_errors_and_warnings.
const SuccessBanner = "YOUR FILE IS VALIDATED!\n"

const errorsHeader = "----------------ERRORS----------------\n"
const warningsHeader = "-------------WARNINGS-------------\n"

// FiletypeIncorrectMessage is the canonical report for a submission whose
// filename(s) matched no registered format.
const FiletypeIncorrectMessage = "Filename incorrect! File should start with the filetype prefix for a registered format."

// SubmissionUnit is one or two entities that together form a single
// logical file for validation (e.g. a clinical patient+sample pair).
type SubmissionUnit struct {
	Entities         []platform.Entity
	Center           string
	ExplicitFiletype string // set by the caller; skips detection when set
}

// Result is the outcome of validating one submission unit.
type Result struct {
	Valid    bool
	Report   string
	Filetype string // empty if filetype could not be determined

	// Dataset is the unit's raw (unprocessed) table snapshot. Populated only
	// when Valid. The pipeline's process step does not use it; it re-reads
	// the source files.
	Dataset platform.TableSnapshot
}

// Helper dispatches validation against a Registry.
type Helper struct {
	Registry *registry.Registry
}

// NewHelper returns a Helper backed by reg.
func NewHelper(reg *registry.Registry) *Helper {
	return &Helper{Registry: reg}
}

// DetermineFiletype returns the format matching unit's entities, honoring
// an explicit filetype (unit.ExplicitFiletype, else the first entity's
// filetype annotation) over name-based detection (§4.3).
func (h *Helper) DetermineFiletype(unit SubmissionUnit) (registry.FileFormat, bool) {
	explicit := unit.ExplicitFiletype
	for _, e := range unit.Entities {
		if explicit != "" {
			break
		}
		explicit = e.FiletypeHint()
	}
	if explicit != "" {
		return h.Registry.Get(explicit)
	}
	names := make([]string, len(unit.Entities))
	for i, e := range unit.Entities {
		names[i] = e.Name
	}
	return h.Registry.DetermineFiletype(names)
}

// ValidateSingle determines the filetype, reads and validates the
// submission, and returns an assembled report (§4.3).
func (h *Helper) ValidateSingle(ctx context.Context, unit SubmissionUnit) (Result, error) {
	if len(unit.Entities) > 2 {
		return Result{}, &errs.InvariantViolation{Detail: "at most two entities per submission unit"}
	}

	format, ok := h.DetermineFiletype(unit)
	if !ok {
		return Result{Valid: false, Report: FiletypeIncorrectMessage}, nil
	}

	ds, err := format.Read(ctx, unit.Entities)
	if err != nil {
		var rf *errs.ReadFailure
		if ok := asReadFailure(err, &rf); ok {
			msg := rf.Error()
			return Result{
				Valid:    false,
				Report:   CollectErrorsAndWarnings(msg, ""),
				Filetype: format.FiletypeTag(),
			}, nil
		}
		return Result{}, err
	}

	kwargs := registry.Kwargs{"center": unit.Center}
	if err := kwargs.Require(format.RequiredValidateKwargs()); err != nil {
		return Result{}, err
	}

	errorsText, warningsText, err := format.Validate(ctx, ds, kwargs)
	if err != nil {
		return Result{}, err
	}

	valid := errorsText == ""
	report := CollectErrorsAndWarnings(errorsText, warningsText)

	result := Result{Valid: valid, Report: report, Filetype: format.FiletypeTag()}
	if valid {
		result.Dataset = ds
	}
	return result, nil
}

// CollectErrorsAndWarnings assembles the user-facing report from validator
// output, in the order and wording §8.7 fixes: errors then warnings, and
// the success banner when both are empty.
func CollectErrorsAndWarnings(errorsText, warningsText string) string {
	if errorsText == "" && warningsText == "" {
		return SuccessBanner
	}
	var b strings.Builder
	if errorsText != "" {
		b.WriteString(errorsHeader)
		b.WriteString(errorsText)
		b.WriteString("\n")
	} else {
		b.WriteString(SuccessBanner)
	}
	if warningsText != "" {
		b.WriteString(warningsHeader)
		b.WriteString(warningsText)
		b.WriteString("\n")
	}
	return b.String()
}

func asReadFailure(err error, target **errs.ReadFailure) bool {
	if rf, ok := err.(*errs.ReadFailure); ok {
		*target = rf
		return true
	}
	return false
}
