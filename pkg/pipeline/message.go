// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"time"

	"github.com/kraklabs/sift/pkg/config"
	"github.com/kraklabs/sift/pkg/decode"
)

// archiveMessage is what the decompression stage hands to the archive
// stage: either a pass-through directory or a freshly extracted one.
type archiveMessage struct {
	// Path is the archive directory: either the original input directory
	// (is_temp=false) or the extractor's output directory (is_temp=true).
	Path    string
	IsTemp  bool
	InError bool
	Stderr  string

	DecompressDuration time.Duration
}

// parseTask is one file submitted to the parse stage, carrying everything
// a decoder needs and a private per-archive reply channel.
type parseTask struct {
	Path       string
	ParserSpec config.ParserSpec
	Source     decode.Source
	Sinks      *sinkSet
	Reply      chan<- parseOutcome
}

// parseOutcome is a parse task's result, sent back on its reply channel.
type parseOutcome struct {
	FileName string
	Rows     int
	Duration time.Duration
	Err      error
}

// ArchiveSummary is the per-archive result the archive stage emits on the
// final result queue.
type ArchiveSummary struct {
	ArchiveName string
	NumErrors   int
	Rows        int
	Duration    time.Duration
}

// Result aggregates every archive summary from one pipeline run.
type Result struct {
	Archives    []ArchiveSummary
	TotalRows   int
	TotalErrors int
}
