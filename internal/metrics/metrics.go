// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics exposes Prometheus counters and histograms for the
// ingestion pipeline: archives processed, files matched/skipped/ambiguous,
// rows decoded per decoder kind, and sink write/flush errors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type pipelineMetrics struct {
	once sync.Once

	archivesProcessed prometheus.Counter
	archivesErrored   prometheus.Counter

	filesMatched   prometheus.Counter
	filesSkipped   prometheus.Counter
	filesAmbiguous prometheus.Counter

	rowsDecoded *prometheus.CounterVec

	sinkWriteErrors *prometheus.CounterVec
	sinkFlushErrors *prometheus.CounterVec

	decompressDuration prometheus.Histogram
	parseDuration      *prometheus.HistogramVec
	sinkFlushDuration  *prometheus.HistogramVec
}

var m pipelineMetrics

func (p *pipelineMetrics) init() {
	p.once.Do(func() {
		p.archivesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_archives_processed_total", Help: "Archives processed by the archive stage.",
		})
		p.archivesErrored = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_archives_errored_total", Help: "Archives that finished with at least one error.",
		})
		p.filesMatched = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_files_matched_total", Help: "Files matched by exactly one parser filter.",
		})
		p.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_files_skipped_total", Help: "Files matched by no parser filter.",
		})
		p.filesAmbiguous = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_files_ambiguous_total", Help: "Files matched by more than one parser filter.",
		})
		p.rowsDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_rows_decoded_total", Help: "Rows decoded, by decoder kind.",
		}, []string{"decoder"})
		p.sinkWriteErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_sink_write_errors_total", Help: "Sink write failures, by sink kind.",
		}, []string{"sink"})
		p.sinkFlushErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_sink_flush_errors_total", Help: "Sink flush failures, by sink kind.",
		}, []string{"sink"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		p.decompressDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "sift_decompress_seconds", Help: "Archive decompression duration.", Buckets: buckets,
		})
		p.parseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "sift_parse_seconds", Help: "Per-file parse duration, by decoder kind.", Buckets: buckets,
		}, []string{"decoder"})
		p.sinkFlushDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "sift_sink_flush_seconds", Help: "Sink flush duration, by sink kind.", Buckets: buckets,
		}, []string{"sink"})

		prometheus.MustRegister(
			p.archivesProcessed, p.archivesErrored,
			p.filesMatched, p.filesSkipped, p.filesAmbiguous,
			p.rowsDecoded, p.sinkWriteErrors, p.sinkFlushErrors,
			p.decompressDuration, p.parseDuration, p.sinkFlushDuration,
		)
	})
}

// ArchiveProcessed records one completed archive; errored indicates the
// per-archive summary carried num_errors > 0.
func ArchiveProcessed(errored bool) {
	m.init()
	m.archivesProcessed.Inc()
	if errored {
		m.archivesErrored.Inc()
	}
}

// FileMatched records a file matched by exactly one parser filter.
func FileMatched() { m.init(); m.filesMatched.Inc() }

// FileSkipped records a file matched by no parser filter.
func FileSkipped() { m.init(); m.filesSkipped.Inc() }

// FileAmbiguous records a file matched by more than one parser filter.
func FileAmbiguous() { m.init(); m.filesAmbiguous.Inc() }

// RowsDecoded adds n rows decoded by the named decoder kind.
func RowsDecoded(decoder string, n int) {
	m.init()
	m.rowsDecoded.WithLabelValues(decoder).Add(float64(n))
}

// SinkWriteError records a write failure for the named sink kind.
func SinkWriteError(sink string) { m.init(); m.sinkWriteErrors.WithLabelValues(sink).Inc() }

// SinkFlushError records a flush failure for the named sink kind.
func SinkFlushError(sink string) { m.init(); m.sinkFlushErrors.WithLabelValues(sink).Inc() }

// ObserveDecompress records the duration of one archive's decompression.
func ObserveDecompress(seconds float64) { m.init(); m.decompressDuration.Observe(seconds) }

// ObserveParse records the duration of one file's decode, by decoder kind.
func ObserveParse(decoder string, seconds float64) {
	m.init()
	m.parseDuration.WithLabelValues(decoder).Observe(seconds)
}

// ObserveSinkFlush records the duration of one sink's flush, by sink kind.
func ObserveSinkFlush(sink string, seconds float64) {
	m.init()
	m.sinkFlushDuration.WithLabelValues(sink).Observe(seconds)
}
