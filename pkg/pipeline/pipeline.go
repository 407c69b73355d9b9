// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package pipeline wires the three-stage ingestion dataflow: decompression,
// archive traversal, and per-file parsing. Decompression runs unbounded,
// archive traversal is capped at a fixed width (the pipeline's sole
// backpressure point), and parsing runs with a generous queue so a handful
// of slow files never stall the archive stage that feeds them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/kraklabs/sift/pkg/config"
)

// parseQueueCapacity bounds the parse stage's input buffer. It is sized well
// above any single archive's file count so archive workers never block
// handing work to the parse stage; the archive stage's own width is the
// pipeline's real backpressure point.
const parseQueueCapacity = 4096

// Driver runs one ingestion pass over a configured input folder.
type Driver struct {
	cfg        *config.Config
	mappings   map[string]*config.TabularMapping
	builder    *SinkBuilder
	logger     *slog.Logger
	importDate time.Time

	// OnArchive, when set, is invoked on every ArchiveSummary as it
	// completes, before Run collects it into the final Result. It lets a
	// caller drive a progress indicator without waiting for the whole run.
	OnArchive func(ArchiveSummary)
}

// NewDriver prepares a driver for one run. mappings must contain every
// tabular mapping referenced by cfg's parser entries (see
// LoadTabularMappings). importDate stamps every row this run decodes.
func NewDriver(cfg *config.Config, mappings map[string]*config.TabularMapping, builder *SinkBuilder, logger *slog.Logger, importDate time.Time) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{cfg: cfg, mappings: mappings, builder: builder, logger: logger, importDate: importDate}
}

// Run walks the input folder, decompressing, matching, and parsing every
// archive it finds, and returns once every archive has been fully
// accounted for.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	entries, err := os.ReadDir(d.cfg.InputFolder)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read input folder %q: %w", d.cfg.InputFolder, err)
	}

	stage1In := make(chan string, len(entries))
	stage2In := make(chan archiveMessage, 1)
	stage3In := make(chan parseTask, parseQueueCapacity)
	resultsCh := make(chan ArchiveSummary, len(entries))

	decompressWorkers := workerCount(d.cfg.DecompressionThreads)
	archiveWorkers := workerCount(d.cfg.ArchiveThreads)
	parseWorkers := workerCount(d.cfg.ParsingThreads)

	var wg1, wg2, wg3 sync.WaitGroup

	if !d.cfg.InputIsDecompressed {
		wg1.Add(decompressWorkers)
		for i := 0; i < decompressWorkers; i++ {
			go func() {
				defer wg1.Done()
				decompressWorker(ctx, stage1In, stage2In, d.cfg.Extractor, d.cfg.TempFolder, d.logger)
			}()
		}
	}

	wg2.Add(archiveWorkers)
	for i := 0; i < archiveWorkers; i++ {
		go func() {
			defer wg2.Done()
			archiveWorker(stage2In, stage3In, resultsCh, d.cfg, d.builder, d.importDate, d.logger)
		}()
	}

	wg3.Add(parseWorkers)
	for i := 0; i < parseWorkers; i++ {
		go func() {
			defer wg3.Done()
			parseWorker(stage3In, d.mappings, d.logger)
		}()
	}

	// feed routes each input entry either straight to the archive stage
	// (already-decompressed input) or through decompression first, then
	// closes each stage in turn. It runs alongside the collection loop
	// below so summaries are seen as archives complete.
	go func() {
		for _, e := range entries {
			path := filepath.Join(d.cfg.InputFolder, e.Name())
			if d.cfg.InputIsDecompressed {
				stage2In <- archiveMessage{Path: path, IsTemp: false}
				continue
			}
			stage1In <- path
		}
		close(stage1In)

		if !d.cfg.InputIsDecompressed {
			wg1.Wait()
		}
		close(stage2In)

		wg2.Wait()
		close(stage3In)

		wg3.Wait()
		close(resultsCh)
	}()

	result := &Result{}
	for summary := range resultsCh {
		if d.OnArchive != nil {
			d.OnArchive(summary)
		}
		result.Archives = append(result.Archives, summary)
		result.TotalRows += summary.Rows
		result.TotalErrors += summary.NumErrors
	}
	return result, nil
}

// workerCount resolves a configured worker count, defaulting to half the
// available CPUs (minimum 1) when unset.
func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	return n
}
