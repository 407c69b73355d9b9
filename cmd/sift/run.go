// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	sifterrors "github.com/kraklabs/sift/internal/errors"
	"github.com/kraklabs/sift/internal/output"
	"github.com/kraklabs/sift/pkg/config"
	"github.com/kraklabs/sift/pkg/pipeline"
)

// RunResult is the JSON shape printed by `sift run --json`.
type RunResult struct {
	Archives    []pipeline.ArchiveSummary `json:"archives"`
	TotalRows   int                       `json:"total_rows"`
	TotalErrors int                       `json:"total_errors"`
	Duration    string                    `json:"duration"`
}

// runIngest loads configuration and ingests every archive under the
// configured input folder.
func runIngest(configPath string, globals GlobalFlags) {
	logger := newLogger(globals.Debug)

	cfg, mappings, err := loadConfig(configPath)
	if err != nil {
		sifterrors.FatalError(err, globals.JSON)
		return
	}

	if _, err := pipeline.BuildCatalog(cfg, mappings); err != nil {
		sifterrors.FatalError(sifterrors.NewSchemaError(
			"Configuration does not describe a valid topic catalog",
			err.Error(),
			"Check that every parser's mapping file declares a valid sort field",
		), globals.JSON)
		return
	}

	entries, err := os.ReadDir(cfg.InputFolder)
	if err != nil {
		sifterrors.FatalError(sifterrors.NewConfigError(
			"Cannot read the input folder",
			err.Error(),
			fmt.Sprintf("Check that %s exists and is readable", cfg.InputFolder),
			err,
		), globals.JSON)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := pipeline.NewSinkBuilder(ctx, cfg.ClientContext, cfg.Output, logger)
	defer func() {
		if err := builder.Close(); err != nil {
			logger.Warn("sift.run.sink_close_error", "error", err)
		}
	}()

	driver := pipeline.NewDriver(cfg, mappings, builder, logger, time.Now())

	progressCfg := NewProgressConfig(globals)
	bar := NewProgressBar(progressCfg, int64(len(entries)), "ingesting archives")
	if bar != nil {
		driver.OnArchive = func(pipeline.ArchiveSummary) { bar.Add(1) }
	}

	start := time.Now()
	result, err := driver.Run(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		sifterrors.FatalError(sifterrors.NewInternalError(
			"Ingestion run failed",
			err.Error(),
			"Check the input folder path and permissions",
			err,
		), globals.JSON)
		return
	}
	elapsed := time.Since(start)

	if globals.JSON {
		out := RunResult{
			Archives:    result.Archives,
			TotalRows:   result.TotalRows,
			TotalErrors: result.TotalErrors,
			Duration:    elapsed.String(),
		}
		if err := output.JSON(out); err != nil {
			sifterrors.FatalError(err, true)
		}
		return
	}

	fmt.Printf("Processed %d archive(s), %d row(s), %d error(s) in %s\n",
		len(result.Archives), result.TotalRows, result.TotalErrors, elapsed)
	for _, a := range result.Archives {
		fmt.Printf("  %-40s rows=%-8d errors=%-4d %s\n", a.ArchiveName, a.Rows, a.NumErrors, a.Duration)
	}

	if result.TotalErrors > 0 {
		os.Exit(1)
	}
}

// loadConfig reads the parser configuration and every tabular mapping it
// references.
func loadConfig(path string) (*config.Config, map[string]*config.TabularMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, sifterrors.NewConfigError(
			"Cannot read configuration file",
			err.Error(),
			fmt.Sprintf("Check that %s exists and is readable", path),
			err,
		)
	}
	cfg, err := config.Load(data)
	if err != nil {
		return nil, nil, sifterrors.NewConfigError(
			"Cannot parse configuration file",
			err.Error(),
			"Check the YAML syntax and required fields",
			err,
		)
	}
	mappings, err := pipeline.LoadTabularMappings(cfg)
	if err != nil {
		return nil, nil, sifterrors.NewConfigError(
			"Cannot load tabular mapping file",
			err.Error(),
			"Check every tabular parser's mapping_path",
			err,
		)
	}
	return cfg, mappings, nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
