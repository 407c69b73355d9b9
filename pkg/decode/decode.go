// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package decode implements the four format-specific decoders the parse
// stage dispatches to: tabular (CSV), event-log (EVTX), registry (NT hive),
// and ESE database (SRUM layout). Each decoder turns one source file into a
// stream of envelope.Tuple records written to a sink.
package decode

import (
	"time"

	"github.com/kraklabs/sift/pkg/envelope"
)

// Source carries the provenance fields every decoded row in one file
// shares: the machine the artifact came from, the archive it was extracted
// from, the file's path within it, and the run's import timestamp.
type Source struct {
	Computer     string
	ArchiveName  string
	OriginalFile string
	ImportDate   time.Time
}

// NewTuple starts an envelope for one decoded row from this source.
func (s Source) NewTuple() *envelope.Tuple {
	return envelope.New(s.Computer, s.OriginalFile, s.ArchiveName, s.ImportDate)
}

// Sink is the capability every decoder writes rows through. pkg/sink.Fanout
// satisfies it.
type Sink interface {
	Write(t *envelope.Tuple) error
}
