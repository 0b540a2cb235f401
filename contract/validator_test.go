package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newBundle creates a valid contract bundle under a temp root and
// returns the root.
func newBundle(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	bundle := filepath.Join(root, DefaultBundleDir)
	files := map[string]string{
		DefaultSpecFile:  "openapi: 3.0.3\n",
		DefaultGuideFile: "# Integration\n",
		filepath.Join(DefaultEventsDir, "opportunity-created.json"): `{"type": "object"}`,
		filepath.Join(DefaultEventsDir, "notice-archived.json"):     `{"type": "object", "properties": {}}`,
	}
	for rel, content := range files {
		path := filepath.Join(bundle, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestValidateFullPass(t *testing.T) {
	root := newBundle(t)
	res := New(root).Validate()
	if res.Failed() {
		t.Fatalf("expected full pass, got %+v", res.Checks)
	}
	// bundle + spec + guide + 2 schemas
	if len(res.Checks) != 5 {
		t.Errorf("expected 5 checks, got %d", len(res.Checks))
	}
}

func TestValidateMissingBundleShortCircuits(t *testing.T) {
	res := New(t.TempDir()).Validate()
	if !res.Failed() {
		t.Fatal("expected failure for missing bundle")
	}
	if len(res.Checks) != 1 {
		t.Fatalf("missing bundle must short-circuit before other checks, got %+v", res.Checks)
	}
	if !strings.Contains(res.Checks[0].Detail, "submodule") {
		t.Errorf("expected submodule hint, got %q", res.Checks[0].Detail)
	}
}

func TestValidateMissingSpecIsFatal(t *testing.T) {
	root := newBundle(t)
	if err := os.Remove(filepath.Join(root, DefaultBundleDir, DefaultSpecFile)); err != nil {
		t.Fatal(err)
	}
	res := New(root).Validate()
	if !res.Failed() {
		t.Fatal("expected failure for missing spec file")
	}
}

func TestValidateMissingGuideIsWarningOnly(t *testing.T) {
	root := newBundle(t)
	if err := os.Remove(filepath.Join(root, DefaultBundleDir, DefaultGuideFile)); err != nil {
		t.Fatal(err)
	}
	res := New(root).Validate()
	if res.Failed() {
		t.Fatalf("missing guide must only warn, got %+v", res.Checks)
	}
	var warned bool
	for _, c := range res.Checks {
		if c.Warning {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning check for the missing guide")
	}
}

func TestValidateMalformedSchemaNamesFile(t *testing.T) {
	root := newBundle(t)
	bad := filepath.Join(root, DefaultBundleDir, DefaultEventsDir, "broken.json")
	if err := os.WriteFile(bad, []byte(`{"type": "object",`), 0o644); err != nil {
		t.Fatal(err)
	}

	res := New(root).Validate()
	if !res.Failed() {
		t.Fatal("expected failure for malformed schema document")
	}
	var found bool
	for _, c := range res.Checks {
		if !c.OK && !c.Warning && strings.Contains(c.Name, "broken.json") {
			found = true
			if !strings.Contains(c.Detail, "broken.json") {
				t.Errorf("detail should name the file: %q", c.Detail)
			}
		}
	}
	if !found {
		t.Errorf("no failing check for broken.json in %+v", res.Checks)
	}
}

func TestValidateNoEventsDirIsFine(t *testing.T) {
	root := newBundle(t)
	if err := os.RemoveAll(filepath.Join(root, DefaultBundleDir, DefaultEventsDir)); err != nil {
		t.Fatal(err)
	}
	if res := New(root).Validate(); res.Failed() {
		t.Fatalf("events dir is optional, got %+v", res.Checks)
	}
}
