// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"regexp"
	"testing"

	"github.com/kraklabs/sift/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestBuildCatalog_TabularTopicRegistersSortField(t *testing.T) {
	cfg := &config.Config{
		Parsers: []config.ParserEntry{
			{
				FileFilterPattern: `\.csv$`,
				FileFilter:        regexp.MustCompile(`\.csv$`),
				Parser:            config.ParserSpec{Kind: config.ParserTabular, MappingPath: "mapping.yaml"},
			},
		},
	}
	mapping := &config.TabularMapping{
		Topic:     "processes",
		SortField: "Timestamp",
		Fields: map[string]config.FieldSpec{
			"Timestamp": {Kind: config.FieldDate},
			"Name":      {Kind: config.FieldString},
		},
	}
	cat, err := BuildCatalog(cfg, map[string]*config.TabularMapping{"mapping.yaml": mapping})
	require.NoError(t, err)

	topics := cat.Topics()
	require.Len(t, topics, 1)
	require.Equal(t, "processes", topics[0].TopicName)
	require.Equal(t, "Timestamp", topics[0].SortFieldName)
}

func TestBuildCatalog_MissingSortFieldErrors(t *testing.T) {
	cfg := &config.Config{
		Parsers: []config.ParserEntry{
			{
				FileFilterPattern: `\.csv$`,
				FileFilter:        regexp.MustCompile(`\.csv$`),
				Parser:            config.ParserSpec{Kind: config.ParserTabular, MappingPath: "mapping.yaml"},
			},
		},
	}
	mapping := &config.TabularMapping{
		Topic:     "processes",
		SortField: "DoesNotExist",
		Fields: map[string]config.FieldSpec{
			"Name": {Kind: config.FieldString},
		},
	}
	_, err := BuildCatalog(cfg, map[string]*config.TabularMapping{"mapping.yaml": mapping})
	require.Error(t, err)
}

func TestBuildCatalog_UnloadedMappingErrors(t *testing.T) {
	cfg := &config.Config{
		Parsers: []config.ParserEntry{
			{
				FileFilterPattern: `\.csv$`,
				FileFilter:        regexp.MustCompile(`\.csv$`),
				Parser:            config.ParserSpec{Kind: config.ParserTabular, MappingPath: "missing.yaml"},
			},
		},
	}
	_, err := BuildCatalog(cfg, map[string]*config.TabularMapping{})
	require.Error(t, err)
}

func TestBuildCatalog_RegistryAndEventLogTopicsAreFixed(t *testing.T) {
	cfg := &config.Config{
		Parsers: []config.ParserEntry{
			{FileFilter: regexp.MustCompile(`\.evtx$`), Parser: config.ParserSpec{Kind: config.ParserEventLog}},
			{FileFilter: regexp.MustCompile(`NTUSER\.DAT$`), Parser: config.ParserSpec{Kind: config.ParserRegistry, RootName: "HKEY_CURRENT_USER"}},
		},
	}
	cat, err := BuildCatalog(cfg, nil)
	require.NoError(t, err)

	_, ok := cat.Lookup("evtx")
	require.True(t, ok)
	_, ok = cat.Lookup("hive")
	require.True(t, ok)
}
