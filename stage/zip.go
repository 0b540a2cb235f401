package stage

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// excludedDirs are directory names never included in an archive.
var excludedDirs = []string{"__pycache__", ".git"}

// excludedFiles are file names/suffixes never included in an archive.
var excludedFiles = []string{".DS_Store", ".pyc"}

// zipEpoch is the fixed timestamp written to every archive entry so
// repeated packaging of unchanged inputs is byte-identical.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// isExcluded reports whether a slash-separated relative path falls
// under an excluded directory or matches an excluded file pattern.
func isExcluded(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		for _, dir := range excludedDirs {
			if part == dir {
				return true
			}
		}
	}
	base := relPath[strings.LastIndex(relPath, "/")+1:]
	for _, f := range excludedFiles {
		if base == f || strings.HasSuffix(base, f) {
			return true
		}
	}
	return false
}

// WriteArchive compresses the contents of pkgDir into a zip archive at
// archivePath, excluding transient artifacts. Entries are written in
// sorted order with normalized modes and a fixed timestamp, so the
// output is deterministic for identical inputs. Returns the archive
// size in bytes.
func WriteArchive(pkgDir, archivePath string) (int64, error) {
	var paths []string
	err := filepath.Walk(pkgDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(pkgDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			if rel != "." && isExcluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isExcluded(rel) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan package dir: %w", err)
	}
	sort.Strings(paths)

	f, err := os.Create(archivePath) //nolint:gosec // G304: archive lives inside the build root
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, rel := range paths {
		hdr := &zip.FileHeader{
			Name:     rel,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		}
		hdr.SetMode(0o644)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return 0, fmt.Errorf("write header for %s: %w", rel, err)
		}
		src, err := os.Open(filepath.Join(pkgDir, filepath.FromSlash(rel))) //nolint:gosec // G304: path produced by the walk above
		if err != nil {
			return 0, fmt.Errorf("open %s: %w", rel, err)
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err != nil {
			return 0, fmt.Errorf("write %s: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	return info.Size(), nil
}
