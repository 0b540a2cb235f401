// Package stage assembles per-unit package directories and compresses
// them into deployable zip archives. Staging is destructive by design:
// any leftover package directory or archive from a previous run is
// removed before a unit is staged, so no stale files can leak into the
// new archive.
package stage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// CommandRunner executes an external command, streaming its output to
// the process's stdout/stderr. Tests inject a recording stub.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// ExecRunner is the default CommandRunner backed by os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: tool name and args come from the catalog, not remote input
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Option configures a Stager.
type Option func(*Stager)

// WithRunner sets the command runner used for dependency installs.
func WithRunner(r CommandRunner) Option {
	return func(s *Stager) { s.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stager) { s.logger = l }
}

// Stager builds unit package directories under a single build root.
type Stager struct {
	buildRoot        string
	sharedDir        string // may be "", or point at a missing dir
	rootRequirements string // may be "", or point at a missing file

	runner CommandRunner
	logger *slog.Logger
}

// New creates a Stager. sharedDir and rootRequirements are optional;
// missing paths are skipped at stage time.
func New(buildRoot, sharedDir, rootRequirements string, opts ...Option) *Stager {
	s := &Stager{
		buildRoot:        buildRoot,
		sharedDir:        sharedDir,
		rootRequirements: rootRequirements,
		runner:           ExecRunner,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildRoot returns the staging root directory.
func (s *Stager) BuildRoot() string { return s.buildRoot }

// Cleanup removes the entire build root. It is called once after a run
// regardless of per-unit outcomes.
func (s *Stager) Cleanup() error {
	return os.RemoveAll(s.buildRoot)
}

// Result describes a staged unit package.
type Result struct {
	PackageDir  string
	ArchivePath string
	ArchiveSize int64
}

// Stage assembles and compresses one unit package:
// source tree + shared library tree + installed dependencies, zipped
// with transient artifacts excluded. unitRequirements may point at a
// missing file, in which case only shared dependencies are installed.
func (s *Stager) Stage(ctx context.Context, name, sourceDir, unitRequirements string) (*Result, error) {
	pkgDir := filepath.Join(s.buildRoot, name)
	archivePath := pkgDir + ".zip"

	// Idempotent cleanup before this unit's processing begins.
	if err := os.RemoveAll(pkgDir); err != nil {
		return nil, fmt.Errorf("stage: clean package dir for %s: %w", name, err)
	}
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("stage: clean archive for %s: %w", name, err)
	}
	if err := os.MkdirAll(pkgDir, 0o750); err != nil {
		return nil, fmt.Errorf("stage: create package dir for %s: %w", name, err)
	}

	if err := copyTree(sourceDir, pkgDir); err != nil {
		return nil, fmt.Errorf("stage: copy source for %s: %w", name, err)
	}

	// Shared code is common to every unit and always included when the
	// shared directory exists.
	if s.sharedDir != "" {
		if info, err := os.Stat(s.sharedDir); err == nil && info.IsDir() {
			dest := filepath.Join(pkgDir, filepath.Base(s.sharedDir))
			if err := copyTree(s.sharedDir, dest); err != nil {
				return nil, fmt.Errorf("stage: copy shared tree for %s: %w", name, err)
			}
		}
	}

	if err := s.installDependencies(ctx, name, pkgDir, unitRequirements); err != nil {
		return nil, err
	}

	size, err := WriteArchive(pkgDir, archivePath)
	if err != nil {
		return nil, fmt.Errorf("stage: package %s: %w", name, err)
	}

	s.logger.Info("unit staged", "unit", name, "archive", archivePath, "bytes", size)
	return &Result{PackageDir: pkgDir, ArchivePath: archivePath, ArchiveSize: size}, nil
}

// installDependencies installs shared dependencies first and
// unit-specific dependencies second, both into the package directory.
// Installing the unit manifest last makes unit-specific pins win when
// the two manifests disagree on a package version.
func (s *Stager) installDependencies(ctx context.Context, name, pkgDir, unitRequirements string) error {
	if s.rootRequirements != "" {
		if _, err := os.Stat(s.rootRequirements); err == nil {
			s.logger.Info("installing shared dependencies", "unit", name, "manifest", s.rootRequirements)
			if err := s.runner(ctx, "python3", "-m", "pip", "install", "-q", "-r", s.rootRequirements, "-t", pkgDir); err != nil {
				return fmt.Errorf("stage: install shared dependencies for %s: %w", name, err)
			}
		}
	}
	if unitRequirements != "" {
		if _, err := os.Stat(unitRequirements); err == nil {
			s.logger.Info("installing unit dependencies", "unit", name, "manifest", unitRequirements)
			if err := s.runner(ctx, "python3", "-m", "pip", "install", "-q", "-r", unitRequirements, "-t", pkgDir); err != nil {
				return fmt.Errorf("stage: install dependencies for %s: %w", name, err)
			}
		}
	}
	return nil
}

// copyTree recursively copies the contents of src into dst. dst is
// created if needed; existing files are overwritten.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !info.Mode().IsRegular() {
			// Symlinks and other specials are skipped; Lambda packages
			// contain regular files only.
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: paths come from the local source tree walk
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst) //nolint:gosec // G304: target is inside the build root
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
