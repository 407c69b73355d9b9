// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kraklabs/sift/internal/metrics"
	"github.com/kraklabs/sift/pkg/config"
	"github.com/kraklabs/sift/pkg/decode"
)

// parseWorker drains tasks, dispatching each to the decoder its parser kind
// names and reporting the outcome on the task's own reply channel.
func parseWorker(tasks <-chan parseTask, mappings map[string]*config.TabularMapping, logger *slog.Logger) {
	for task := range tasks {
		start := time.Now()
		rows, err := dispatchParse(task, mappings, logger)
		duration := time.Since(start)
		metrics.ObserveParse(string(task.ParserSpec.Kind), duration.Seconds())
		task.Reply <- parseOutcome{
			FileName: task.Source.OriginalFile,
			Rows:     rows,
			Duration: duration,
			Err:      err,
		}
	}
}

func dispatchParse(task parseTask, mappings map[string]*config.TabularMapping, logger *slog.Logger) (int, error) {
	switch task.ParserSpec.Kind {
	case config.ParserTabular:
		mapping, ok := mappings[task.ParserSpec.MappingPath]
		if !ok {
			return 0, fmt.Errorf("pipeline: no tabular mapping loaded for %q", task.ParserSpec.MappingPath)
		}
		fanout, err := task.Sinks.Get(mapping.Topic)
		if err != nil {
			return 0, err
		}
		rows, err := decode.Tabular(task.Path, task.Source, mapping, task.ParserSpec.BestEffort, task.ParserSpec.SkipLines, logger, fanout)
		observeParse("tabular", rows, err)
		return rows, err

	case config.ParserEventLog:
		fanout, err := task.Sinks.Get(decode.EventLogTopic)
		if err != nil {
			return 0, err
		}
		rows, err := decode.EventLog(task.Path, task.Source, fanout)
		observeParse("event_log", rows, err)
		return rows, err

	case config.ParserRegistry:
		root, err := decode.LoadRegistryHive(task.Path, task.ParserSpec.RootName)
		if err != nil {
			return 0, fmt.Errorf("pipeline: load registry hive %q: %w", task.Path, err)
		}
		fanout, err := task.Sinks.Get(decode.HiveTopic)
		if err != nil {
			return 0, err
		}
		rows, err := decode.Registry(root, task.ParserSpec.RootName, task.Source, fanout)
		observeParse("registry", rows, err)
		return rows, err

	case config.ParserESEDatabase:
		db, err := decode.OpenESEDatabase(task.Path)
		if err != nil {
			return 0, fmt.Errorf("pipeline: open ESE database %q: %w", task.Path, err)
		}
		factory := decode.SinkFactory(func(topicName string) (decode.Sink, error) {
			return task.Sinks.Get(topicName)
		})
		rows, err := decode.ESEDatabase(db, task.Source, factory, logger)
		observeParse("ese_database", rows, err)
		return rows, err

	default:
		return 0, fmt.Errorf("pipeline: unknown parser kind %q", task.ParserSpec.Kind)
	}
}

func observeParse(decoder string, rows int, err error) {
	if err == nil {
		metrics.RowsDecoded(decoder, rows)
	}
}
