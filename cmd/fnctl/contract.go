package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/oppwatch/fndeploy/contract"
)

func runContract(args []string) error {
	fs := flag.NewFlagSet("contract", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: fnctl contract

Validate the local API contract bundle: the bundle submodule must be
present, the OpenAPI spec must exist, and every event schema document
must parse. A missing integration guide is a warning only.
`)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	res := contract.New(root).Validate()
	for _, c := range res.Checks {
		switch {
		case c.OK:
			fmt.Printf("  ok    %-28s %s\n", c.Name, c.Detail)
		case c.Warning:
			fmt.Printf("  warn  %-28s %s\n", c.Name, c.Detail)
		default:
			fmt.Printf("  fail  %-28s %s\n", c.Name, c.Detail)
		}
	}

	if res.Failed() {
		return fmt.Errorf("contract validation failed")
	}
	fmt.Println("contract bundle is valid")
	return nil
}
