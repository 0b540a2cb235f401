package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore retains archives on the local filesystem under
// {baseDir}/runs/{runID}/{key}, with a sidecar .sha256 file per
// archive so metadata survives process restarts.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a LocalStore rooted at baseDir.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

func (s *LocalStore) archivePath(runID, key string) string {
	return filepath.Join(s.baseDir, "runs", runID, key)
}

// Put writes the archive to disk, computing SHA256 as it copies.
func (s *LocalStore) Put(_ context.Context, runID, key string, r io.Reader) error {
	path := s.archivePath(runID, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("artifact: create run directory: %w", err)
	}

	f, err := os.Create(path) //nolint:gosec // G304: path is derived from run ID and unit key
	if err != nil {
		return fmt.Errorf("artifact: create %s: %w", key, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, hasher), r); err != nil {
		return fmt.Errorf("artifact: write %s: %w", key, err)
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	if err := os.WriteFile(path+".sha256", []byte(checksum+"\n"), 0o640); err != nil {
		return fmt.Errorf("artifact: write checksum for %s: %w", key, err)
	}
	return nil
}

// List scans the run directory for retained archives.
func (s *LocalStore) List(_ context.Context, runID string) ([]Archive, error) {
	dir := filepath.Join(s.baseDir, "runs", runID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("artifact: list run %s: %w", runID, err)
	}

	var archives []Archive
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == ".sha256" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("artifact: stat %s: %w", e.Name(), err)
		}
		a := Archive{
			Key:       e.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
		if sum, err := os.ReadFile(filepath.Join(dir, e.Name()+".sha256")); err == nil { //nolint:gosec // G304: sidecar next to the listed entry
			a.Checksum = trimNewline(string(sum))
		}
		archives = append(archives, a)
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].Key < archives[j].Key })
	return archives, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
