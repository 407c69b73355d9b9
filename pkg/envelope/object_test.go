// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObject_MarshalJSON_PreservesInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", int64(1))
	o.Set("a", "two")
	o.Set("m", true)

	b, err := json.Marshal(o)
	require.NoError(t, err)
	require.Equal(t, `{"z":1,"a":"two","m":true}`, string(b))
}

func TestObject_MarshalJSON_Nested(t *testing.T) {
	inner := NewObject()
	inner.Set("x", int64(5))

	o := NewObject()
	o.Set("obj", inner)
	o.Set("list", []Value{int64(1), "two", nil})

	b, err := json.Marshal(o)
	require.NoError(t, err)
	require.Equal(t, `{"obj":{"x":5},"list":[1,"two",null]}`, string(b))
}

func TestObject_MarshalJSON_Empty(t *testing.T) {
	b, err := json.Marshal(NewObject())
	require.NoError(t, err)
	require.Equal(t, "{}", string(b))
}

func TestObject_Set_OverwriteKeepsPosition(t *testing.T) {
	o := NewObject()
	o.Set("a", int64(1))
	o.Set("b", int64(2))
	o.Set("a", int64(3))

	require.Equal(t, []string{"a", "b"}, o.Keys())
	v, ok := o.Get("a")
	require.True(t, ok)
	require.Equal(t, int64(3), v)
}
