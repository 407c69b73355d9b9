// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/sift/pkg/envelope"
)

// fileBufferSize is the buffered writer size for the file sink, matching
// the one-record-per-line JSONL output it produces.
const fileBufferSize = 1 << 20 // 1 MiB

// FileSink writes one line-delimited JSON record per row to
// <folder>/<archive_name>/<context>_<topic>.jsonl.
type FileSink struct {
	f *os.File
	w *bufio.Writer
}

// NewFileSink creates (or truncates) the output file for the given sink
// folder, archive name, client context, and topic name.
func NewFileSink(folder, archiveName, clientContext, topicName string) (*FileSink, error) {
	dir := filepath.Join(folder, archiveName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file sink: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.jsonl", clientContext, topicName))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("file sink: open %s: %w", path, err)
	}
	return &FileSink{f: f, w: bufio.NewWriterSize(f, fileBufferSize)}, nil
}

// Write serializes t and appends a trailing newline.
func (s *FileSink) Write(t *envelope.Tuple) error {
	line, err := t.ToJSONString()
	if err != nil {
		return fmt.Errorf("file sink: serialize: %w", err)
	}
	if _, err := s.w.WriteString(line); err != nil {
		return fmt.Errorf("file sink: write: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("file sink: write: %w", err)
	}
	return nil
}

// Flush flushes the buffered writer.
func (s *FileSink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("file sink: flush: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	if err := s.Flush(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}
