// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kraklabs/sift/internal/metrics"
	"github.com/kraklabs/sift/pkg/config"
	"github.com/kraklabs/sift/pkg/decode"
)

// archiveWorker drains in, processing one archive at a time, submitting
// parse tasks to tasksOut and a final summary to results for each.
func archiveWorker(in <-chan archiveMessage, tasksOut chan<- parseTask, results chan<- ArchiveSummary, cfg *config.Config, builder *SinkBuilder, importDate time.Time, logger *slog.Logger) {
	for msg := range in {
		results <- processArchive(msg, tasksOut, cfg, builder, importDate, logger)
	}
}

func processArchive(msg archiveMessage, tasksOut chan<- parseTask, cfg *config.Config, builder *SinkBuilder, importDate time.Time, logger *slog.Logger) ArchiveSummary {
	archiveName := filepath.Base(msg.Path)
	start := time.Now()

	if msg.InError {
		if msg.IsTemp {
			removeArchiveDir(msg.Path, logger)
		}
		metrics.ArchiveProcessed(true)
		return ArchiveSummary{ArchiveName: archiveName, NumErrors: 1, Duration: time.Since(start)}
	}

	entries, err := os.ReadDir(msg.Path)
	if err != nil {
		logger.Warn("pipeline.archive.read_dir_error", "path", msg.Path, "error", err)
		if msg.IsTemp {
			removeArchiveDir(msg.Path, logger)
		}
		metrics.ArchiveProcessed(true)
		return ArchiveSummary{ArchiveName: archiveName, NumErrors: 1, Duration: time.Since(start)}
	}

	sinks := newSinkSet(builder, archiveName)
	reply := make(chan parseOutcome, len(entries))
	submitted := 0
	numErrors := 0

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		match, ambiguous := matchParserFilters(cfg.Parsers, name)
		if match == nil {
			logger.Info("pipeline.archive.file.skip", "archive", archiveName, "file", name)
			metrics.FileSkipped()
			continue
		}
		if ambiguous {
			for i := range cfg.Parsers {
				if &cfg.Parsers[i] != match && cfg.Parsers[i].FileFilter.MatchString(name) {
					numErrors++
				}
			}
			logger.Warn("pipeline.archive.file.ambiguous", "archive", archiveName, "file", name)
			metrics.FileAmbiguous()
		} else {
			metrics.FileMatched()
		}

		src := decode.Source{
			Computer:     archiveName,
			ArchiveName:  archiveName,
			OriginalFile: name,
			ImportDate:   importDate,
		}
		tasksOut <- parseTask{
			Path:       filepath.Join(msg.Path, name),
			ParserSpec: match.Parser,
			Source:     src,
			Sinks:      sinks,
			Reply:      reply,
		}
		submitted++
	}

	rows := 0
	for i := 0; i < submitted; i++ {
		out := <-reply
		if out.Err != nil {
			numErrors++
			logger.Warn("pipeline.archive.file.parse_error", "archive", archiveName, "file", out.FileName, "error", out.Err)
			continue
		}
		rows += out.Rows
		logger.Info("pipeline.archive.file.parsed", "archive", archiveName, "file", out.FileName, "rows", out.Rows, "duration_ms", out.Duration.Milliseconds())
	}

	numErrors += sinks.Close(logger)

	if msg.IsTemp {
		removeArchiveDir(msg.Path, logger)
	}

	metrics.ArchiveProcessed(numErrors > 0)
	return ArchiveSummary{ArchiveName: archiveName, NumErrors: numErrors, Rows: rows, Duration: time.Since(start)}
}

// matchParserFilters returns the first parser entry whose file filter
// matches name, and whether a second (or later) entry also matched. Only
// the first match is ever used to submit a parse task; every additional
// match is the caller's signal to count one archive error.
func matchParserFilters(entries []config.ParserEntry, name string) (*config.ParserEntry, bool) {
	var first *config.ParserEntry
	count := 0
	for i := range entries {
		if entries[i].FileFilter.MatchString(name) {
			count++
			if first == nil {
				first = &entries[i]
			}
		}
	}
	return first, count >= 2
}

func removeArchiveDir(path string, logger *slog.Logger) {
	if err := os.RemoveAll(path); err != nil {
		logger.Warn("pipeline.archive.cleanup_error", "path", path, "error", err)
	}
}
