// Package contract validates the local interface-definition bundle:
// the API contract submodule this repository's functions are expected
// to conform to. Validation is pure filesystem inspection, no network.
package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Default bundle layout, relative to the repository root.
const (
	DefaultBundleDir = "api-contracts"
	DefaultSpecFile  = "openapi/opportunities-api.yaml"
	DefaultGuideFile = "INTEGRATION.md"
	DefaultEventsDir = "events"
)

// Check is the result of one validation step.
type Check struct {
	Name    string
	OK      bool
	Warning bool // failed but non-fatal
	Detail  string
}

// Result aggregates all checks for a run.
type Result struct {
	Checks []Check
}

// Failed reports whether any fatal check failed.
func (r *Result) Failed() bool {
	for _, c := range r.Checks {
		if !c.OK && !c.Warning {
			return true
		}
	}
	return false
}

// Validator checks the contract bundle rooted at a repository path.
type Validator struct {
	// BundleDir is the contract bundle directory (a git submodule in
	// the standard layout). Mandatory.
	BundleDir string
	// SpecFile is the OpenAPI spec path relative to BundleDir. Mandatory.
	SpecFile string
	// GuideFile is the integration guide relative to BundleDir.
	// Missing produces a warning only.
	GuideFile string
	// EventsDir is the event schema directory relative to BundleDir.
	// Optional; when present every .json document must parse.
	EventsDir string
}

// New creates a Validator with the default bundle layout rooted at root.
func New(root string) *Validator {
	return &Validator{
		BundleDir: filepath.Join(root, DefaultBundleDir),
		SpecFile:  DefaultSpecFile,
		GuideFile: DefaultGuideFile,
		EventsDir: DefaultEventsDir,
	}
}

// Validate runs all checks. A missing bundle is fatal and short-
// circuits: no further check, including schema parsing, is attempted.
func (v *Validator) Validate() *Result {
	res := &Result{}

	info, err := os.Stat(v.BundleDir)
	if err != nil || !info.IsDir() {
		res.Checks = append(res.Checks, Check{
			Name:   "contract bundle",
			Detail: fmt.Sprintf("%s not found; run 'git submodule update --init'", v.BundleDir),
		})
		return res
	}
	res.Checks = append(res.Checks, Check{Name: "contract bundle", OK: true, Detail: v.BundleDir})

	specPath := filepath.Join(v.BundleDir, v.SpecFile)
	if _, err := os.Stat(specPath); err != nil {
		res.Checks = append(res.Checks, Check{
			Name:   "api spec",
			Detail: fmt.Sprintf("%s not found", specPath),
		})
	} else {
		res.Checks = append(res.Checks, Check{Name: "api spec", OK: true, Detail: specPath})
	}

	guidePath := filepath.Join(v.BundleDir, v.GuideFile)
	if _, err := os.Stat(guidePath); err != nil {
		res.Checks = append(res.Checks, Check{
			Name:    "integration guide",
			Warning: true,
			Detail:  fmt.Sprintf("%s not found", guidePath),
		})
	} else {
		res.Checks = append(res.Checks, Check{Name: "integration guide", OK: true, Detail: guidePath})
	}

	res.Checks = append(res.Checks, v.validateEventSchemas()...)
	return res
}

// validateEventSchemas parses every .json document in the events
// directory. A parse failure is fatal and names the file and the
// underlying decode error.
func (v *Validator) validateEventSchemas() []Check {
	dir := filepath.Join(v.BundleDir, v.EventsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		// The events directory is optional.
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var checks []Check
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the local bundle listing
		if err != nil {
			checks = append(checks, Check{
				Name:   "event schema " + name,
				Detail: err.Error(),
			})
			continue
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			checks = append(checks, Check{
				Name:   "event schema " + name,
				Detail: fmt.Sprintf("%s: %v", path, err),
			})
			continue
		}
		checks = append(checks, Check{Name: "event schema " + name, OK: true, Detail: path})
	}
	return checks
}
