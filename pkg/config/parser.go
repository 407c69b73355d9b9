// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the YAML documents that drive a run: the parser
// configuration file (archive layout, parser filters, sinks) and the
// tabular mapping documents the tabular decoder reads.
package config

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ParserKind discriminates the parser variant attached to a file filter.
type ParserKind string

const (
	ParserTabular     ParserKind = "tabular"
	ParserEventLog    ParserKind = "event_log"
	ParserRegistry    ParserKind = "registry"
	ParserESEDatabase ParserKind = "ese_database"
)

// ParserSpec is one parser variant: tabular{mapping_path, best_effort,
// skip_lines}, event_log, registry{root_name}, or ese_database.
type ParserSpec struct {
	Kind ParserKind

	// Tabular fields.
	MappingPath string
	BestEffort  bool
	SkipLines   int

	// Registry fields.
	RootName string
}

type parserSpecYAML struct {
	Type        string `yaml:"type"`
	MappingPath string `yaml:"mapping_path,omitempty"`
	BestEffort  bool   `yaml:"best_effort,omitempty"`
	SkipLines   int    `yaml:"skip_lines,omitempty"`
	RootName    string `yaml:"root_name,omitempty"`
}

// UnmarshalYAML implements a tagged-union decode keyed by a `type` field,
// following the discriminated-variant shape of the parser/sink config.
func (p *ParserSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw parserSpecYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch ParserKind(raw.Type) {
	case ParserTabular:
		if raw.MappingPath == "" {
			return fmt.Errorf("parser %q: mapping_path is required", raw.Type)
		}
		*p = ParserSpec{Kind: ParserTabular, MappingPath: raw.MappingPath, BestEffort: raw.BestEffort, SkipLines: raw.SkipLines}
	case ParserEventLog:
		*p = ParserSpec{Kind: ParserEventLog}
	case ParserRegistry:
		*p = ParserSpec{Kind: ParserRegistry, RootName: raw.RootName}
	case ParserESEDatabase:
		*p = ParserSpec{Kind: ParserESEDatabase}
	default:
		return fmt.Errorf("unknown parser type %q", raw.Type)
	}
	return nil
}

// ParserEntry pairs a compiled file filter with the parser variant to run
// against files it matches.
type ParserEntry struct {
	FileFilterPattern string
	FileFilter        *regexp.Regexp
	Parser            ParserSpec
}

type parserEntryYAML struct {
	FileFilter string     `yaml:"file_filter"`
	Parser     ParserSpec `yaml:"parser"`
}

func (e *ParserEntry) UnmarshalYAML(node *yaml.Node) error {
	var raw parserEntryYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	re, err := regexp.Compile(raw.FileFilter)
	if err != nil {
		return fmt.Errorf("invalid file_filter %q: %w", raw.FileFilter, err)
	}
	e.FileFilterPattern = raw.FileFilter
	e.FileFilter = re
	e.Parser = raw.Parser
	return nil
}

// SinkKind discriminates the sink variant.
type SinkKind string

const (
	SinkFile  SinkKind = "file"
	SinkBus   SinkKind = "bus"
	SinkStore SinkKind = "store"
)

// SinkSpec is one sink variant: file{folder}, bus{params}, or
// store{server, login?, password?}.
type SinkSpec struct {
	Kind SinkKind

	// File fields.
	Folder string

	// Bus fields.
	Params map[string]string

	// Store fields.
	Server   string
	Login    string
	Password string
}

type sinkSpecYAML struct {
	Type     string            `yaml:"type"`
	Folder   string            `yaml:"folder,omitempty"`
	Params   map[string]string `yaml:"params,omitempty"`
	Server   string            `yaml:"server,omitempty"`
	Login    string            `yaml:"login,omitempty"`
	Password string            `yaml:"password,omitempty"`
}

func (s *SinkSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw sinkSpecYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch SinkKind(raw.Type) {
	case SinkFile:
		if raw.Folder == "" {
			return fmt.Errorf("sink %q: folder is required", raw.Type)
		}
		*s = SinkSpec{Kind: SinkFile, Folder: raw.Folder}
	case SinkBus:
		*s = SinkSpec{Kind: SinkBus, Params: raw.Params}
	case SinkStore:
		if raw.Server == "" {
			return fmt.Errorf("sink %q: server is required", raw.Type)
		}
		*s = SinkSpec{Kind: SinkStore, Server: raw.Server, Login: raw.Login, Password: raw.Password}
	default:
		return fmt.Errorf("unknown sink type %q", raw.Type)
	}
	return nil
}

// Config is the top-level parser configuration document: archive layout,
// per-file parser filters, and the sink fan-out.
type Config struct {
	ClientContext        string        `yaml:"client_context"`
	InputFolder          string        `yaml:"input_folder"`
	InputIsDecompressed  bool          `yaml:"input_is_decompressed"`
	TempFolder           string        `yaml:"temp_folder"`
	ArchiveThreads       int           `yaml:"archive_threads"`
	ParsingThreads       int           `yaml:"parsing_threads"`
	DecompressionThreads int           `yaml:"decompression_threads"`
	Extractor            string        `yaml:"extractor,omitempty"`
	Parsers              []ParserEntry `yaml:"parsers"`
	Output               []SinkSpec    `yaml:"output"`
}

// Load reads and validates a parser configuration document from raw YAML
// bytes.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.ClientContext == "" {
		return nil, fmt.Errorf("client_context is required")
	}
	if cfg.InputFolder == "" {
		return nil, fmt.Errorf("input_folder is required")
	}
	if cfg.TempFolder == "" {
		cfg.TempFolder = "."
	}
	if cfg.Extractor == "" {
		cfg.Extractor = "7z"
	}
	return &cfg, nil
}
