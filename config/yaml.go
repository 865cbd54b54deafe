package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSystemYAML reads and validates a System description from path,
// replacing the original build-time JSON config generator per spec.md
// §6 ("free to replace the build-time generator with runtime
// configuration as long as the constants are fixed for the lifetime of
// a run").
func LoadSystemYAML(path string) (*System, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, newError("reading config file", err)
	}

	var sys System
	if err := yaml.Unmarshal(raw, &sys); err != nil {
		return nil, newError("parsing config YAML", err)
	}

	if err := sys.Validate(); err != nil {
		return nil, err
	}

	return &sys, nil
}
