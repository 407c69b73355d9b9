// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"log/slog"
	"sync"

	"github.com/kraklabs/sift/pkg/sink"
)

// sinkSet lazily builds and caches one sink.Fanout per topic for a single
// archive. Fanouts are created on first use by a parse task and flushed
// together when the archive finishes, matching the envelope lifetime rule
// that sinks are created per (archive, topic) pair and flushed on drop.
type sinkSet struct {
	builder     *SinkBuilder
	archiveName string

	mu      sync.Mutex
	fanouts map[string]*sink.Fanout
}

func newSinkSet(builder *SinkBuilder, archiveName string) *sinkSet {
	return &sinkSet{builder: builder, archiveName: archiveName, fanouts: make(map[string]*sink.Fanout)}
}

// Get returns the fanout for topicName, building it on first request.
func (s *sinkSet) Get(topicName string) (*sink.Fanout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.fanouts[topicName]; ok {
		return f, nil
	}
	f, err := s.builder.Build(s.archiveName, topicName)
	if err != nil {
		return nil, err
	}
	s.fanouts[topicName] = f
	return f, nil
}

// Close flushes every fanout built for this archive and returns how many
// failed to flush. Flush is attempted for all of them regardless of
// earlier failures.
func (s *sinkSet) Close(logger *slog.Logger) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	failed := 0
	for topicName, f := range s.fanouts {
		if err := f.Flush(); err != nil {
			failed++
			logger.Warn("pipeline.sink.flush_error", "archive", s.archiveName, "topic", topicName, "error", err)
		}
	}
	return failed
}
