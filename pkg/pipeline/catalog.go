// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"fmt"
	"os"

	"github.com/kraklabs/sift/pkg/config"
	"github.com/kraklabs/sift/pkg/decode"
	"github.com/kraklabs/sift/pkg/topic"
)

// BuildCatalog derives the topic catalog for a run from its parser
// configuration: one topic per distinct tabular mapping, plus the fixed
// event-log, registry, and SRUM topics for any configured parser of that
// kind. Registration validates that every sort field actually names a
// declared column, catching a misconfigured mapping before the run starts.
func BuildCatalog(cfg *config.Config, tabularMappings map[string]*config.TabularMapping) (*topic.Catalog, error) {
	cat := topic.NewCatalog()
	seen := make(map[string]bool)

	for _, entry := range cfg.Parsers {
		switch entry.Parser.Kind {
		case config.ParserTabular:
			m, ok := tabularMappings[entry.Parser.MappingPath]
			if !ok {
				return nil, fmt.Errorf("pipeline: catalog: tabular mapping %q not loaded", entry.Parser.MappingPath)
			}
			if seen[m.Topic] {
				continue
			}
			seen[m.Topic] = true
			if err := cat.Register(topic.Topic{
				TopicName:     m.Topic,
				TableName:     m.Topic,
				Fields:        tabularFieldDefs(m),
				SortFieldName: m.SortField,
			}); err != nil {
				return nil, err
			}
		case config.ParserEventLog:
			if seen[decode.EventLogTopic] {
				continue
			}
			seen[decode.EventLogTopic] = true
			if err := cat.Register(topic.Topic{
				TopicName:     decode.EventLogTopic,
				TableName:     decode.EventLogTopic,
				Fields:        decode.EventLogFields(),
				SortFieldName: decode.EventLogSortField,
			}); err != nil {
				return nil, err
			}
		case config.ParserRegistry:
			if seen[decode.HiveTopic] {
				continue
			}
			seen[decode.HiveTopic] = true
			if err := cat.Register(topic.Topic{
				TopicName: decode.HiveTopic,
				TableName: decode.HiveTopic,
				Fields:    decode.HiveFields(),
			}); err != nil {
				return nil, err
			}
		case config.ParserESEDatabase:
			for _, t := range decode.SrumTopics() {
				if seen[t.TopicName] {
					continue
				}
				seen[t.TopicName] = true
				if err := cat.Register(t); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("pipeline: catalog: unknown parser kind %q", entry.Parser.Kind)
		}
	}
	return cat, nil
}

// tabularFieldDefs derives a topic's field definitions from a tabular
// mapping's configured columns. A sort column missing from the mapping's
// fields is not added, so Register rejects it.
func tabularFieldDefs(m *config.TabularMapping) []topic.FieldDef {
	fields := make([]topic.FieldDef, 0, len(m.Fields)+1)
	for name, spec := range m.Fields {
		var st topic.SemanticType
		switch spec.Kind {
		case config.FieldInteger:
			st = topic.Int64
		case config.FieldFloat:
			st = topic.Float
		case config.FieldDate:
			st = topic.Date
		default:
			st = topic.String
		}
		fields = append(fields, topic.FieldDef{Name: name, Type: st})
	}
	return fields
}

// LoadTabularMappings reads every distinct tabular mapping file referenced
// by cfg's parser entries, keyed by its configured path.
func LoadTabularMappings(cfg *config.Config) (map[string]*config.TabularMapping, error) {
	out := make(map[string]*config.TabularMapping)
	for _, entry := range cfg.Parsers {
		if entry.Parser.Kind != config.ParserTabular {
			continue
		}
		if _, ok := out[entry.Parser.MappingPath]; ok {
			continue
		}
		data, err := os.ReadFile(entry.Parser.MappingPath)
		if err != nil {
			return nil, fmt.Errorf("pipeline: read tabular mapping %q: %w", entry.Parser.MappingPath, err)
		}
		m, err := config.LoadTabularMapping(data)
		if err != nil {
			return nil, fmt.Errorf("pipeline: parse tabular mapping %q: %w", entry.Parser.MappingPath, err)
		}
		out[entry.Parser.MappingPath] = m
	}
	return out, nil
}
