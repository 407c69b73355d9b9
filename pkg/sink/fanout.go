// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package sink

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/kraklabs/sift/pkg/envelope"
)

// Fanout multiplexes one decoded record to N sinks. With exactly one sink
// the record is written directly; with more than one, every sink gets its
// own clone so none can observe another's mutation.
type Fanout struct {
	sinks  []Sink
	rows   atomic.Uint64
	logger *slog.Logger
}

// NewFanout wraps sinks behind a single Sink-shaped entry point.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// Write sends t to every sink. The first sink failure aborts the write and
// is returned immediately; it does not attempt the remaining sinks.
func (f *Fanout) Write(t *envelope.Tuple) error {
	if len(f.sinks) == 1 {
		if err := f.sinks[0].Write(t); err != nil {
			return err
		}
		f.rows.Add(1)
		return nil
	}
	for _, s := range f.sinks {
		if err := s.Write(t.Clone()); err != nil {
			return err
		}
	}
	f.rows.Add(1)
	return nil
}

// Flush flushes every sink regardless of earlier failures and returns a
// single coalesced error if any sink failed.
func (f *Fanout) Flush() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and discards any error, logging it instead. Fanout
// guarantees flush-on-drop; callers that want the error should call Flush
// directly before discarding the Fanout.
func (f *Fanout) Close() {
	if err := f.Flush(); err != nil {
		f.logger.Warn("sink.fanout.close.flush_error", "error", err)
	}
}

// RowCount returns the number of rows successfully written.
func (f *Fanout) RowCount() uint64 {
	return f.rows.Load()
}
