// Package deployer orchestrates the per-unit package-and-deploy
// pipeline: preflight checks, sequential unit processing with
// accumulated outcomes, artifact retention, and final cleanup of the
// build root.
package deployer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/google/uuid"

	"github.com/oppwatch/fndeploy/artifact"
	"github.com/oppwatch/fndeploy/awscloud"
	"github.com/oppwatch/fndeploy/catalog"
	"github.com/oppwatch/fndeploy/stage"
)

// requiredTools are external commands that must be callable before any
// unit is processed. Dependency installs shell out to python3; zip
// compression happens in-process.
var requiredTools = []string{"python3"}

// FunctionService pushes one unit's archive to the remote function
// service and returns the published version.
type FunctionService interface {
	UpdateFunctionCode(ctx context.Context, functionName string, archive []byte) (string, error)
}

// Stager assembles and compresses unit packages.
type Stager interface {
	Stage(ctx context.Context, name, sourceDir, unitRequirements string) (*stage.Result, error)
	Cleanup() error
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Deployer) { d.logger = l }
}

// WithIdentityClient sets the STS client used by the preflight.
func WithIdentityClient(c awscloud.STSClient) Option {
	return func(d *Deployer) { d.sts = c }
}

// WithArtifactStore retains each deployed archive in the given store,
// keyed by run ID. Retention failures are logged, never fatal.
func WithArtifactStore(s artifact.Store) Option {
	return func(d *Deployer) { d.store = s }
}

// WithDryRun packages every unit but skips the remote update call and
// the identity preflight.
func WithDryRun() Option {
	return func(d *Deployer) { d.dryRun = true }
}

// WithKeepWorkdir leaves the build root in place after the run, for
// inspection.
func WithKeepWorkdir() Option {
	return func(d *Deployer) { d.keepWorkdir = true }
}

// WithLookPath overrides tool lookup in tests.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(d *Deployer) { d.lookPath = fn }
}

// Deployer runs the packaging-and-deployment pipeline over a catalog.
type Deployer struct {
	catalog     *catalog.Catalog
	root        string
	environment string
	stager      Stager
	functions   FunctionService

	sts         awscloud.STSClient
	store       artifact.Store
	logger      *slog.Logger
	dryRun      bool
	keepWorkdir bool
	lookPath    func(string) (string, error)
	runID       string
}

// New creates a Deployer for the given catalog rooted at root.
// functions may be nil only in dry-run mode.
func New(cat *catalog.Catalog, root, environment string, stager Stager, functions FunctionService, opts ...Option) *Deployer {
	d := &Deployer{
		catalog:     cat,
		root:        root,
		environment: environment,
		stager:      stager,
		functions:   functions,
		logger:      slog.Default(),
		lookPath:    exec.LookPath,
		runID:       uuid.New().String(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunID returns this run's identifier, used in logs and artifact keys.
func (d *Deployer) RunID() string { return d.runID }

// Preflight verifies required external tools are callable and the
// configured AWS identity works. Any failure here is fatal and aborts
// before any unit is touched. Dry runs skip the identity check since
// no remote call will be made.
func (d *Deployer) Preflight(ctx context.Context) error {
	for _, tool := range requiredTools {
		if _, err := d.lookPath(tool); err != nil {
			return fmt.Errorf("deployer: required tool %q not found in PATH: %w", tool, err)
		}
	}
	if d.dryRun {
		return nil
	}
	if d.sts == nil {
		return fmt.Errorf("deployer: no identity client configured")
	}
	id, err := awscloud.ValidateCredentials(ctx, d.sts)
	if err != nil {
		return fmt.Errorf("deployer: identity preflight: %w", err)
	}
	d.logger.Info("identity verified", "account", id.Account, "arn", id.ARN, "run_id", d.runID)
	return nil
}

// Run processes every unit in the catalog sequentially and returns the
// accumulated summary. Per-unit failures are recorded, not propagated;
// the build root is torn down afterwards regardless of the outcome mix.
func (d *Deployer) Run(ctx context.Context) (*Summary, error) {
	if !d.keepWorkdir {
		defer func() {
			if err := d.stager.Cleanup(); err != nil {
				d.logger.Error("build root cleanup failed", "err", err)
			}
		}()
	}

	summary := &Summary{RunID: d.runID, Environment: d.environment}
	for _, u := range d.catalog.Units {
		outcome := d.deployUnit(ctx, u)
		summary.record(outcome)
	}
	return summary, nil
}

// deployUnit runs one unit through the pipeline and returns its
// terminal outcome. It is a pure function of (unit, environment): all
// bookkeeping lives in the summary the caller threads through the loop.
func (d *Deployer) deployUnit(ctx context.Context, u catalog.Unit) Outcome {
	sourceDir := d.catalog.SourcePath(d.root, u)
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		d.logger.Warn("source directory missing, skipping unit", "unit", u.Name, "dir", sourceDir)
		return Outcome{Unit: u.Name, Status: StatusSkipped, Reason: fmt.Sprintf("source directory %s not found", sourceDir)}
	}

	d.logger.Info("packaging unit", "unit", u.Name, "run_id", d.runID)
	res, err := d.stager.Stage(ctx, u.Name, sourceDir, d.catalog.RequirementsPath(d.root, u))
	if err != nil {
		return Outcome{Unit: u.Name, Status: StatusDeployFailed, Reason: err.Error()}
	}

	if d.dryRun {
		return Outcome{Unit: u.Name, Status: StatusPackaged}
	}

	archive, err := os.ReadFile(res.ArchivePath)
	if err != nil {
		return Outcome{Unit: u.Name, Status: StatusDeployFailed, Reason: fmt.Sprintf("read archive: %v", err)}
	}

	d.retainArtifact(ctx, u.Name, archive)

	version, err := d.functions.UpdateFunctionCode(ctx, u.Function, archive)
	if err != nil {
		d.logger.Error("remote update failed", "unit", u.Name, "function", u.Function, "err", err)
		return Outcome{Unit: u.Name, Status: StatusDeployFailed, Reason: err.Error()}
	}

	d.logger.Info("unit deployed", "unit", u.Name, "function", u.Function, "version", version)
	return Outcome{Unit: u.Name, Status: StatusDeployed, Version: version}
}

// retainArtifact stores the archive under the run ID when a store is
// configured. Retention is best-effort and never affects the outcome.
func (d *Deployer) retainArtifact(ctx context.Context, unit string, archive []byte) {
	if d.store == nil {
		return
	}
	key := unit + ".zip"
	if err := d.store.Put(ctx, d.runID, key, bytes.NewReader(archive)); err != nil {
		d.logger.Warn("artifact retention failed", "unit", unit, "key", key, "err", err)
	}
}
