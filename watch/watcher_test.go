package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherFiresOncePerUnit(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "functions", "sam-json-processor")
	if err := os.MkdirAll(src, 0o750); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var fired []string
	w, err := New(
		map[string]string{"sam-json-processor": src},
		func(unit string) {
			mu.Lock()
			fired = append(fired, unit)
			mu.Unlock()
		},
		WithDebounce(50*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// A burst of writes should collapse into one callback.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(filepath.Join(src, "handler.py"), []byte("pass\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(fired)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for change callback")
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if fired[0] != "sam-json-processor" {
		t.Errorf("callback fired for %q", fired[0])
	}
}

func TestUnitForIgnoresOutsidePaths(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "functions", "u")
	if err := os.MkdirAll(src, 0o750); err != nil {
		t.Fatal(err)
	}

	w, err := New(map[string]string{"u": src}, func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.unitFor(filepath.Join(src, "nested", "file.py")); !ok {
		t.Error("path under the source dir should map to the unit")
	}
	if unit, ok := w.unitFor(filepath.Join(root, "elsewhere", "file.py")); ok {
		t.Errorf("outside path mapped to unit %q", unit)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := New(map[string]string{"u": root}, func(string) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
}
