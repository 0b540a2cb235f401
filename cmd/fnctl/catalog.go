package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/oppwatch/fndeploy/catalog"
)

func runCatalog(args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	configPath := fs.String("config", "", "Catalog file (default "+catalog.DefaultFile+" if present)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: fnctl catalog [options]

List the configured units and whether their source directories exist.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := catalog.Load(*configPath)
	if err != nil {
		return err
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	for _, u := range cat.Units {
		dir := cat.SourcePath(root, u)
		state := "ok"
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			state = "missing"
		}
		fmt.Printf("  %-8s %-24s -> %s (%s)\n", state, u.Name, u.Function, dir)
	}
	return nil
}
