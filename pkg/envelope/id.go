// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package envelope

import (
	"encoding/base64"
	"encoding/binary"
	"math"

	"github.com/zeebo/blake3"
)

// deriveID computes the 128-bit content-addressed, optionally time-prefixed
// record identifier and returns its unpadded URL-safe base64 rendering.
//
// The hash walks data's fields in insertion order rather than a canonical
// sorted order. That is deliberate, not an oversight: two objects that are
// semantically equal but built with fields in a different order will hash
// to different ids. Sorting fields here would change every id this package
// has ever emitted, so it stays exactly as the reference behavior needs it.
func deriveID(data *Object, computer, originalFile string, sortData *int64) string {
	h := blake3.New()
	writeObject(h, data)
	h.Write([]byte(computer))
	h.Write([]byte(originalFile))
	sum := h.Sum(nil)

	var id [16]byte
	if sortData != nil {
		binary.LittleEndian.PutUint64(id[0:8], uint64(*sortData))
		copy(id[8:16], sum[0:8])
	} else {
		copy(id[:], sum[0:16])
	}
	return base64.RawURLEncoding.EncodeToString(id[:])
}

type byteWriter interface {
	Write(p []byte) (n int, err error)
}

func writeObject(h byteWriter, o *Object) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		h.Write([]byte(k))
		writeValue(h, o.vals[k])
	}
}

func writeValue(h byteWriter, v Value) {
	switch val := v.(type) {
	case nil:
		// contributes nothing, matching the canonicalization rule for null.
	case string:
		h.Write([]byte(val))
	case bool:
		if val {
			h.Write([]byte{0x01})
		} else {
			h.Write([]byte{0x00})
		}
	case int64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(val))
		h.Write(b[:])
	case int:
		writeValue(h, int64(val))
	case float64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(val))
		h.Write(b[:])
	case []Value:
		for _, e := range val {
			writeValue(h, e)
		}
	case *Object:
		writeObject(h, val)
	}
}
