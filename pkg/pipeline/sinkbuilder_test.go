// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kraklabs/sift/pkg/config"
	"github.com/kraklabs/sift/pkg/envelope"
	"github.com/stretchr/testify/require"
)

func TestSinkBuilder_BuildFileSinkWritesUnderArchiveTopic(t *testing.T) {
	dir := t.TempDir()
	specs := []config.SinkSpec{{Kind: config.SinkFile, Folder: dir}}
	builder := NewSinkBuilder(context.Background(), "ctx", specs, slog.Default())

	fanout, err := builder.Build("archive1", "processes")
	require.NoError(t, err)

	tup := envelope.New("host", "file.csv", "archive1", time.Now())
	require.NoError(t, tup.SetData(envelope.NewObject()))
	require.NoError(t, fanout.Write(tup))
	require.NoError(t, fanout.Flush())

	_, err = os.Stat(filepath.Join(dir, "archive1", "ctx_processes.jsonl"))
	require.NoError(t, err)
}

func TestSinkBuilder_BusSinkWithoutBrokersErrors(t *testing.T) {
	specs := []config.SinkSpec{{Kind: config.SinkBus, Params: map[string]string{}}}
	builder := NewSinkBuilder(context.Background(), "ctx", specs, slog.Default())

	_, err := builder.Build("archive1", "processes")
	require.Error(t, err)
}

func TestSinkSet_GetCachesFanoutPerTopic(t *testing.T) {
	dir := t.TempDir()
	specs := []config.SinkSpec{{Kind: config.SinkFile, Folder: dir}}
	builder := NewSinkBuilder(context.Background(), "ctx", specs, slog.Default())
	set := newSinkSet(builder, "archive1")

	first, err := set.Get("processes")
	require.NoError(t, err)
	second, err := set.Get("processes")
	require.NoError(t, err)
	require.Same(t, first, second)

	failed := set.Close(slog.Default())
	require.Equal(t, 0, failed)
}
