package platform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Load builds a registry from the built-in profiles plus those in path.
// Profiles from the file are matched first so they can override a built-in.
// An empty path yields the default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse profiles file %s: %w", path, err)
	}
	all := make([]Profile, 0, len(pf.Profiles)+len(builtinProfiles))
	all = append(all, pf.Profiles...)
	all = append(all, builtinProfiles...)
	return NewRegistry(all...)
}
