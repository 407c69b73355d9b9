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

func entry(pattern string, kind config.ParserKind) config.ParserEntry {
	return config.ParserEntry{
		FileFilterPattern: pattern,
		FileFilter:        regexp.MustCompile(pattern),
		Parser:            config.ParserSpec{Kind: kind},
	}
}

func TestMatchParserFilters_NoMatch(t *testing.T) {
	entries := []config.ParserEntry{entry(`\.csv$`, config.ParserTabular)}
	match, ambiguous := matchParserFilters(entries, "notes.txt")
	require.Nil(t, match)
	require.False(t, ambiguous)
}

func TestMatchParserFilters_SingleMatch(t *testing.T) {
	entries := []config.ParserEntry{
		entry(`\.csv$`, config.ParserTabular),
		entry(`\.evtx$`, config.ParserEventLog),
	}
	match, ambiguous := matchParserFilters(entries, "events.csv")
	require.NotNil(t, match)
	require.Equal(t, config.ParserTabular, match.Parser.Kind)
	require.False(t, ambiguous)
}

func TestMatchParserFilters_AmbiguousMatchUsesFirstButFlags(t *testing.T) {
	entries := []config.ParserEntry{
		entry(`^data`, config.ParserTabular),
		entry(`\.csv$`, config.ParserEventLog),
	}
	match, ambiguous := matchParserFilters(entries, "data_export.csv")
	require.NotNil(t, match)
	require.Equal(t, config.ParserTabular, match.Parser.Kind)
	require.True(t, ambiguous)
}

func TestFileStem_StripsExtension(t *testing.T) {
	require.Equal(t, "machine1_2025", fileStem("/tmp/in/machine1_2025.7z"))
	require.Equal(t, "archive", fileStem("archive"))
	require.Equal(t, "nested.tar", fileStem("nested.tar.gz"))
}
