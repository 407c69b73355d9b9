// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package envelope

import (
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTuple_ID_LiteralVector(t *testing.T) {
	data := NewObject()
	data.Set("i", 1.87)
	data.Set("rd", "test")

	tup := New("machine", "original", "archive", time.Unix(0, 0))
	tup.SetSortData(122324)
	require.NoError(t, tup.SetData(data))

	id, err := tup.ID()
	require.NoError(t, err)
	require.Equal(t, "1N0BAAAAAAAb3tT1XT2sSw", id)
}

func TestTuple_ID_StableAcrossRuns(t *testing.T) {
	build := func() string {
		data := NewObject()
		data.Set("a", int64(1))
		data.Set("b", "value")
		tup := New("host", "file.csv", "arc", time.Now())
		require.NoError(t, tup.SetData(data))
		id, err := tup.ID()
		require.NoError(t, err)
		return id
	}
	require.Equal(t, build(), build())
}

func TestTuple_ID_SortDataPrefixesID(t *testing.T) {
	data := NewObject()
	data.Set("k", "v")
	tup := New("c", "f", "a", time.Now())
	tup.SetSortData(987654321)
	require.NoError(t, tup.SetData(data))
	id, err := tup.ID()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(id)
	require.NoError(t, err)
	require.Len(t, raw, 16)
	require.Equal(t, uint64(987654321), binary.LittleEndian.Uint64(raw[0:8]))
}

func TestTuple_ID_DistinctDataDistinctIDs(t *testing.T) {
	base := New("c", "f", "a", time.Now())
	base.SetSortData(1)
	d1 := NewObject()
	d1.Set("v", "one")
	require.NoError(t, base.SetData(d1))
	id1, _ := base.ID()

	other := New("c", "f", "a", time.Now())
	other.SetSortData(1)
	d2 := NewObject()
	d2.Set("v", "two")
	require.NoError(t, other.SetData(d2))
	id2, _ := other.ID()

	require.NotEqual(t, id1, id2)
}

func TestTuple_ID_InsertionOrderMatters(t *testing.T) {
	forward := NewObject()
	forward.Set("a", "1")
	forward.Set("b", "2")

	reversed := NewObject()
	reversed.Set("b", "2")
	reversed.Set("a", "1")

	t1 := New("c", "f", "a", time.Now())
	require.NoError(t, t1.SetData(forward))
	id1, _ := t1.ID()

	t2 := New("c", "f", "a", time.Now())
	require.NoError(t, t2.SetData(reversed))
	id2, _ := t2.ID()

	require.NotEqual(t, id1, id2, "insertion order must affect the id; this is a documented quirk, not a bug")
}

func TestTuple_SetData_OnlyOnce(t *testing.T) {
	tup := New("c", "f", "a", time.Now())
	require.NoError(t, tup.SetData(NewObject()))
	require.ErrorIs(t, tup.SetData(NewObject()), ErrDataAlreadySet)
}

func TestTuple_ID_BeforeSetData(t *testing.T) {
	tup := New("c", "f", "a", time.Now())
	_, err := tup.ID()
	require.ErrorIs(t, err, ErrIDNotDerived)
}

func TestTuple_Key_StableForSameSource(t *testing.T) {
	t1 := New("host-a", "file.csv", "arc1", time.Now())
	t2 := New("host-a", "file.csv", "arc2", time.Now())
	require.Equal(t, t1.Key(), t2.Key())
}

func TestTuple_ToJSONString_FieldOrderAndEmptyData(t *testing.T) {
	tup := New("machine", "original", "archive", time.Date(2024, 1, 2, 3, 4, 5, 6e6, time.UTC))
	s, err := tup.ToJSONString()
	require.NoError(t, err)
	require.Equal(t, `{"import_date":"2024-01-02 03:04:05.006","computer":"machine","original_file":"original","archive_name":"archive","id":"","data":{}}`, s)
}
