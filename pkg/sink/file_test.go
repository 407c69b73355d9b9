// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package sink

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kraklabs/sift/pkg/envelope"
	"github.com/stretchr/testify/require"
)

func TestFileSink_WritesJSONLToExpectedPath(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileSink(dir, "archive1", "ctx", "topicA")
	require.NoError(t, err)

	tup := envelope.New("host", "file.csv", "archive1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	data := envelope.NewObject()
	data.Set("k", "v")
	require.NoError(t, tup.SetData(data))
	require.NoError(t, fs.Write(tup))
	require.NoError(t, fs.Close())

	path := filepath.Join(dir, "archive1", "ctx_topicA.jsonl")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
		require.True(t, strings.Contains(sc.Text(), `"k":"v"`))
		require.True(t, strings.HasSuffix(sc.Text(), "}"))
	}
	require.Equal(t, 1, lines)
}

func TestFileSink_AppendsOneLinePerRecord(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileSink(dir, "arc", "ctx", "topic")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tup := envelope.New("h", "f", "arc", time.Now())
		require.NoError(t, tup.SetData(envelope.NewObject()))
		require.NoError(t, fs.Write(tup))
	}
	require.NoError(t, fs.Flush())
	require.NoError(t, fs.Close())

	b, err := os.ReadFile(filepath.Join(dir, "arc", "ctx_topic.jsonl"))
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(string(b), "\n"))
}
