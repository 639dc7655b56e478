package formats

import "github.com/Sage-Bionetworks/synapsegenie/internal/registry"

// packageName is recorded against every format this package registers, so
// the registry can report which extension package contributed a tag.
const packageName = "formats"

// RegisterAll adds every format built into this package to reg. A real
// deployment's --format-registry-packages flag would load additional
// packages the same way; this module ships exactly one.
func RegisterAll(reg *registry.Registry) {
	reg.Register(packageName, ClinicalFormat{})
	reg.Register(packageName, MAFFormat{})
	reg.Register(packageName, CNAFormat{})
}
