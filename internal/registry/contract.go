// Package registry holds the FileFormat contract every concrete file
// format satisfies, and the explicit registration table that replaces the
// subtype-enumeration discovery of the original system (see DESIGN.md's
// registry entry): an extension package's formats are added through
// explicit Register calls (formats.RegisterAll, invoked by the CLI when the
// package is named) instead of being scanned for subclasses.
package registry

import (
	"context"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
	"github.com/Sage-Bionetworks/synapsegenie/internal/platform"
)

// Kwargs is a per-format typed parameter record, validated at dispatch time
// against a format's declared required keys — the typed replacement for the
// original's ad-hoc per-file-type kwarg dictionaries.
type Kwargs map[string]string

// Require returns an error naming the first required key missing from k.
func (k Kwargs) Require(keys []string) error {
	for _, key := range keys {
		if _, ok := k[key]; !ok {
			return &errs.MissingParameter{Name: key}
		}
	}
	return nil
}

// FileFormat is the contract every concrete file format satisfies (§4.2).
type FileFormat interface {
	// FiletypeTag identifies this format uniquely within a Registry. It
	// replaces the original's mutable `_filetype` class attribute with a
	// method, per the redesign notes.
	FiletypeTag() string

	// FiletypeMatches is a pure function of the submitted filenames
	// (extension, naming convention). len(filenames) is 1 or 2.
	FiletypeMatches(filenames []string) bool

	// Read loads the submission's file content into a row-oriented dataset.
	// entities has length 1 for single-file formats, or 2 for formats that
	// pair two physical files (e.g. clinical patient+sample).
	Read(ctx context.Context, entities []platform.Entity) (platform.TableSnapshot, error)

	// Validate checks ds and returns newline-separated error and warning
	// messages; an empty errors string means the dataset is valid.
	Validate(ctx context.Context, ds platform.TableSnapshot, kwargs Kwargs) (errorsText, warningsText string, err error)

	// Process transforms ds into the normalized form written to the
	// destination table.
	Process(ctx context.Context, ds platform.TableSnapshot, kwargs Kwargs) (platform.TableSnapshot, error)

	// RequiredValidateKwargs and RequiredProcessKwargs declare the kwargs
	// keys Validate and Process require; Kwargs.Require checks them.
	RequiredValidateKwargs() []string
	RequiredProcessKwargs() []string

	// PrimaryKey is the ordered list of destination-table columns that
	// identify a logical row, used by the Reconciliation Engine.
	PrimaryKey() []string

	// DestinationTable names the per-format table Process's output is
	// reconciled into.
	DestinationTable() string

	// EntityCount is 1 for single-file formats, 2 for paired formats.
	EntityCount() int
}
