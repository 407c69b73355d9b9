// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kraklabs/sift/internal/metrics"
)

// decompressWorker drains in, invoking the external extractor for each
// file path (or passing directories straight through), and forwards one
// archiveMessage per input to out.
func decompressWorker(ctx context.Context, in <-chan string, out chan<- archiveMessage, extractor, tempFolder string, logger *slog.Logger) {
	for path := range in {
		out <- decompressOne(ctx, path, extractor, tempFolder, logger)
	}
}

func decompressOne(ctx context.Context, path, extractor, tempFolder string, logger *slog.Logger) archiveMessage {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return archiveMessage{Path: path, IsTemp: false}
	}

	outputPath := filepath.Join(tempFolder, fileStem(path))
	start := time.Now()
	cmd := exec.CommandContext(ctx, extractor, "x", path, "-o"+outputPath, "-y")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	duration := time.Since(start)
	metrics.ObserveDecompress(duration.Seconds())

	if runErr != nil {
		logger.Warn("pipeline.decompress.error", "path", path, "error", runErr, "stderr", stderr.String())
		return archiveMessage{Path: outputPath, IsTemp: true, InError: true, Stderr: stderr.String(), DecompressDuration: duration}
	}
	logger.Info("pipeline.decompress.complete", "path", path, "duration_ms", duration.Milliseconds())
	return archiveMessage{Path: outputPath, IsTemp: true, DecompressDuration: duration}
}

// fileStem returns path's base name without its final extension, matching
// the output directory name the extractor is invoked with.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
