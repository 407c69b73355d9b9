// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package main implements the sift CLI: a thin driver that loads YAML
// configuration, builds the ingestion pipeline, runs it, and prints a
// summary.
//
// Usage:
//
//	sift run --config <path> [--json] [--debug]
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carries flags shared across the CLI.
type GlobalFlags struct {
	JSON  bool
	Debug bool
}

func main() {
	showVersion := flag.BoolP("version", "v", false, "Show version and exit")
	configPath := flag.String("config", "sift.yaml", "Path to the parser configuration file")
	jsonOutput := flag.Bool("json", false, "Output the run summary as JSON")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `sift - forensic artifact ingestion pipeline

Usage:
  sift run [options]

Ingests every archive under the configured input folder: decompressing,
matching each file against the configured parsers, decoding it, and
fanning its records out to the configured sinks.

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sift run --config sift.yaml
  sift run --config sift.yaml --json
  sift run --config sift.yaml --debug

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("sift version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 || args[0] != "run" {
		flag.Usage()
		os.Exit(1)
	}

	runIngest(*configPath, GlobalFlags{JSON: *jsonOutput, Debug: *debug})
}
