// Package catalog defines the deployable unit catalog: which Lambda
// functions exist, where their source trees live, and how the build
// layout is arranged. The catalog is loaded once at process start and
// treated as read-only for the rest of the run.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the catalog file looked up in the working directory
// when no explicit path is given.
const DefaultFile = "fndeploy.yaml"

// Unit describes one independently deployable function package.
type Unit struct {
	// Name is the unique unit identifier, also used as the remote
	// function name unless Function overrides it.
	Name string `yaml:"name"`
	// Source is the directory name under the functions root. Defaults
	// to Name.
	Source string `yaml:"source,omitempty"`
	// Function is the remote Lambda function name. Defaults to Name.
	Function string `yaml:"function,omitempty"`
}

// Layout describes where the repository keeps function sources, shared
// code, and build output.
type Layout struct {
	FunctionsDir     string `yaml:"functions_dir"`
	SharedDir        string `yaml:"shared_dir"`
	RootRequirements string `yaml:"root_requirements"`
	BuildDir         string `yaml:"build_dir"`
}

// Environment holds per-environment overrides.
type Environment struct {
	Region         string `yaml:"region,omitempty"`
	ArtifactBucket string `yaml:"artifact_bucket,omitempty"`
	ArtifactDir    string `yaml:"artifact_dir,omitempty"`
}

// Catalog is the ordered list of unit descriptors plus layout and
// environment settings.
type Catalog struct {
	Layout       Layout                 `yaml:"layout"`
	Units        []Unit                 `yaml:"units"`
	Environments map[string]Environment `yaml:"environments,omitempty"`
}

// Default returns the built-in catalog used when no catalog file is
// present: the eight SAM.gov pipeline functions with the standard
// repository layout.
func Default() *Catalog {
	c := &Catalog{
		Units: []Unit{
			{Name: "sam-extract-downloader"},
			{Name: "sam-json-processor"},
			{Name: "notice-normalizer"},
			{Name: "opportunity-matcher"},
			{Name: "watchlist-sync"},
			{Name: "report-generator"},
			{Name: "email-dispatcher"},
			{Name: "archive-cleaner"},
		},
	}
	c.applyDefaults()
	return c
}

// Load reads the catalog from path. With an empty path it looks for
// DefaultFile in the working directory and falls back to the built-in
// default catalog when the file does not exist.
func Load(path string) (*Catalog, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return Default(), nil
		}
		path = DefaultFile
	}
	return LoadFromFile(path)
}

// LoadFromFile reads and validates a catalog YAML file.
func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	if len(c.Units) == 0 {
		return nil, fmt.Errorf("catalog: %s defines no units", path)
	}
	seen := make(map[string]bool, len(c.Units))
	for _, u := range c.Units {
		if u.Name == "" {
			return nil, fmt.Errorf("catalog: %s contains a unit with no name", path)
		}
		if seen[u.Name] {
			return nil, fmt.Errorf("catalog: duplicate unit %q in %s", u.Name, path)
		}
		seen[u.Name] = true
	}
	c.applyDefaults()
	return &c, nil
}

// applyDefaults fills in layout and per-unit defaults.
func (c *Catalog) applyDefaults() {
	if c.Layout.FunctionsDir == "" {
		c.Layout.FunctionsDir = "functions"
	}
	if c.Layout.SharedDir == "" {
		c.Layout.SharedDir = "shared"
	}
	if c.Layout.RootRequirements == "" {
		c.Layout.RootRequirements = "requirements.txt"
	}
	if c.Layout.BuildDir == "" {
		c.Layout.BuildDir = ".fndeploy-build"
	}
	for i := range c.Units {
		if c.Units[i].Source == "" {
			c.Units[i].Source = c.Units[i].Name
		}
		if c.Units[i].Function == "" {
			c.Units[i].Function = c.Units[i].Name
		}
	}
}

// Filter returns a copy of the catalog restricted to the named unit.
func (c *Catalog) Filter(name string) (*Catalog, error) {
	for _, u := range c.Units {
		if u.Name == name {
			out := *c
			out.Units = []Unit{u}
			return &out, nil
		}
	}
	return nil, fmt.Errorf("catalog: unknown unit %q", name)
}

// Environment returns the named environment section, or a zero value
// when the catalog does not define it.
func (c *Catalog) Environment(name string) Environment {
	if c.Environments == nil {
		return Environment{}
	}
	return c.Environments[name]
}

// SourcePath returns the unit's source directory relative to root.
func (c *Catalog) SourcePath(root string, u Unit) string {
	return filepath.Join(root, c.Layout.FunctionsDir, u.Source)
}

// RequirementsPath returns the unit's dependency manifest path. The
// manifest is optional; callers stat it before use.
func (c *Catalog) RequirementsPath(root string, u Unit) string {
	return filepath.Join(c.SourcePath(root, u), "requirements.txt")
}

// SharedPath returns the shared library directory relative to root.
func (c *Catalog) SharedPath(root string) string {
	return filepath.Join(root, c.Layout.SharedDir)
}

// RootRequirementsPath returns the repository-level dependency
// manifest path relative to root.
func (c *Catalog) RootRequirementsPath(root string) string {
	return filepath.Join(root, c.Layout.RootRequirements)
}

// BuildPath returns the ephemeral build root relative to root.
func (c *Catalog) BuildPath(root string) string {
	return filepath.Join(root, c.Layout.BuildDir)
}
