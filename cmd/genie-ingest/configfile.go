package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// projectConfig is the optional on-disk project file (default
// ./genie-project.yaml) supplying defaults that would otherwise have to be
// repeated on every invocation: the center roster and the extension
// packages to load formats from. Grounded on the corpus's
// vjache-cie/cmd/cie/config.go project-file pattern (a small YAML struct
// loaded once at startup, flags override its fields).
type projectConfig struct {
	ProjectID      string   `yaml:"project_id"`
	ProjectName    string   `yaml:"project_name"`
	Centers        []string `yaml:"centers"`
	FormatPackages []string `yaml:"format_registry_packages"`
}

// loadProjectConfig reads path if it exists, returning a zero-value config
// (not an error) when the file is simply absent — the project file is
// optional, flags alone are a complete CLI invocation.
func loadProjectConfig(path string) (*projectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &projectConfig{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg projectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// resolveFormatPackages returns explicit if non-empty, otherwise the
// project file's list, otherwise nil (buildRegistry's own "formats"
// default applies).
func resolveFormatPackages(explicit []string, pc *projectConfig) []string {
	if len(explicit) > 0 {
		return explicit
	}
	return pc.FormatPackages
}
