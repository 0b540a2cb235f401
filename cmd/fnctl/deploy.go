package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/oppwatch/fndeploy/artifact"
	"github.com/oppwatch/fndeploy/awscloud"
	"github.com/oppwatch/fndeploy/catalog"
	"github.com/oppwatch/fndeploy/deployer"
	"github.com/oppwatch/fndeploy/stage"
	"github.com/oppwatch/fndeploy/watch"
)

const defaultRegion = "us-east-1"

func runDeploy(args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ContinueOnError)
	envFlag := fs.String("env", "", "Deployment environment label (default dev)")
	unitFlag := fs.String("unit", "", "Restrict the run to one unit")
	regionFlag := fs.String("region", "", "AWS region (default $REGION, then "+defaultRegion+")")
	configPath := fs.String("config", "", "Catalog file (default "+catalog.DefaultFile+" if present)")
	dryRun := fs.Bool("dry-run", false, "Package every unit but skip the remote update call")
	keepWorkdir := fs.Bool("keep-workdir", false, "Leave the build root in place after the run")
	watchMode := fs.Bool("watch", false, "Stay running and redeploy units when their sources change")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: fnctl deploy [options] [environment] [unit]

Package each configured unit (source + shared code + dependencies)
into a zip archive and push it to Lambda, publishing a new version.
Units are processed sequentially; a failing unit never blocks the
rest. Exits non-zero if any unit failed.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Positional form: fnctl deploy <environment> [unit].
	environment := *envFlag
	unit := *unitFlag
	if fs.NArg() > 0 && environment == "" {
		environment = fs.Arg(0)
	}
	if fs.NArg() > 1 && unit == "" {
		unit = fs.Arg(1)
	}
	if environment == "" {
		environment = "dev"
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cat, err := catalog.Load(*configPath)
	if err != nil {
		return err
	}
	if unit != "" {
		cat, err = cat.Filter(unit)
		if err != nil {
			return err
		}
	}

	envCfg := cat.Environment(environment)
	region := resolveRegion(*regionFlag, envCfg.Region)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	stager := stage.New(
		cat.BuildPath(root),
		cat.SharedPath(root),
		cat.RootRequirementsPath(root),
		stage.WithLogger(logger),
	)

	opts := []deployer.Option{deployer.WithLogger(logger)}
	if *dryRun {
		opts = append(opts, deployer.WithDryRun())
	}
	if *keepWorkdir {
		opts = append(opts, deployer.WithKeepWorkdir())
	}

	var functions deployer.FunctionService
	if !*dryRun {
		awsCfg, err := awscloud.Config{Region: region}.AWSConfig(ctx)
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		functions = awscloud.NewFunctionService(awsCfg)
		opts = append(opts, deployer.WithIdentityClient(sts.NewFromConfig(awsCfg)))

		if store := buildArtifactStore(awsCfg, envCfg, environment); store != nil {
			opts = append(opts, deployer.WithArtifactStore(store))
		}
	}

	run := func(c *catalog.Catalog) (*deployer.Summary, error) {
		d := deployer.New(c, root, environment, stager, functions, opts...)
		if err := d.Preflight(ctx); err != nil {
			return nil, err
		}
		return d.Run(ctx)
	}

	fmt.Printf("deploying %d unit(s) to %s (region %s)\n", len(cat.Units), environment, region)
	summary, err := run(cat)
	if err != nil {
		return err
	}
	summary.Write(os.Stdout)

	if *watchMode {
		if err := watchAndRedeploy(ctx, cat, root, run, logger); err != nil {
			return err
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d unit(s) failed", summary.Failed, len(cat.Units))
	}
	return nil
}

// resolveRegion picks the region from the flag, the REGION environment
// variable, the catalog environment section, then the fixed default.
func resolveRegion(flagValue, catalogValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("REGION"); env != "" {
		return env
	}
	if catalogValue != "" {
		return catalogValue
	}
	return defaultRegion
}

// buildArtifactStore wires archive retention from the environment
// section: an S3 bucket wins over a local directory; neither means
// retention is off.
func buildArtifactStore(awsCfg aws.Config, envCfg catalog.Environment, environment string) artifact.Store {
	if envCfg.ArtifactBucket != "" {
		return artifact.NewS3Store(s3.NewFromConfig(awsCfg), envCfg.ArtifactBucket, environment)
	}
	if envCfg.ArtifactDir != "" {
		return artifact.NewLocalStore(envCfg.ArtifactDir)
	}
	return nil
}

// watchAndRedeploy blocks until the context is canceled, redeploying a
// unit whenever its source tree changes.
func watchAndRedeploy(ctx context.Context, cat *catalog.Catalog, root string, run func(*catalog.Catalog) (*deployer.Summary, error), logger *slog.Logger) error {
	dirs := make(map[string]string, len(cat.Units))
	for _, u := range cat.Units {
		dir := cat.SourcePath(root, u)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs[u.Name] = dir
		}
	}
	if len(dirs) == 0 {
		return fmt.Errorf("watch: no unit source directories exist")
	}

	w, err := watch.New(dirs, func(unit string) {
		single, err := cat.Filter(unit)
		if err != nil {
			logger.Error("watch redeploy filter", "unit", unit, "err", err)
			return
		}
		summary, err := run(single)
		if err != nil {
			logger.Error("watch redeploy failed", "unit", unit, "err", err)
			return
		}
		summary.Write(os.Stdout)
	}, watch.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Println("watching for source changes (Ctrl-C to stop)...")
	<-ctx.Done()
	return nil
}
