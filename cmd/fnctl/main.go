package main

import (
	"fmt"
	"os"
)

var version = "dev"

var commands = map[string]func([]string) error{
	"deploy":   runDeploy,
	"contract": runContract,
	"catalog":  runCatalog,
}

func usage() {
	fmt.Fprintf(os.Stderr, `fnctl - Lambda packaging and deployment CLI (version %s)

Usage:
  fnctl <command> [options]

Commands:
  deploy     Package and deploy function units (fnctl deploy [env] [unit])
  contract   Validate the local API contract bundle
  catalog    List the configured units

Run 'fnctl <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
