// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package sink implements the record fan-out and its three transports:
// a buffered JSONL file writer, an asynchronous keyed bus producer, and a
// batched inserter into a columnar analytic store.
package sink

import "github.com/kraklabs/sift/pkg/envelope"

// Sink is the capability every transport implements: write one record,
// and flush outstanding state. Implementations are tagged variants
// (file, bus, store) behind this single interface.
type Sink interface {
	Write(t *envelope.Tuple) error
	Flush() error
}
