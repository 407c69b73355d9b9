// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeOrderedJSON parses a single JSON value from b into an Object (or a
// primitive Value at the top level), preserving object key order exactly as
// it appears in the source bytes. The standard library's map[string]any
// decode does not preserve this, which matters here because the identifier
// hash walks data in insertion order.
func DecodeOrderedJSON(b []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("envelope: trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("envelope: object key is not a string")
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			var list []Value
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			if list == nil {
				list = []Value{}
			}
			return list, nil
		default:
			return nil, fmt.Errorf("envelope: unexpected delimiter %v", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case nil, string, bool:
		return t, nil
	default:
		return nil, fmt.Errorf("envelope: unsupported JSON token %T", tok)
	}
}

// AsObject asserts v is an *Object, as the envelope's data field always
// must be once set.
func AsObject(v Value) (*Object, error) {
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("envelope: value is not a JSON object")
	}
	return obj, nil
}
