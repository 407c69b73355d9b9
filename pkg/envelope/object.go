// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package envelope

import "bytes"
import "encoding/json"

// Value is anything an Object field may hold: string, bool, int64, float64,
// []Value, *Object, or nil.
type Value any

// Object is a JSON object that remembers the order fields were inserted in.
//
// The identifier derivation in id.go walks an Object's fields in this
// insertion order, not sorted order — see deriveID for why that quirk is
// load-bearing rather than accidental.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty Object ready for Set calls.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Set inserts or overwrites key with v. Overwriting an existing key keeps
// its original position in iteration order.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get returns the value stored at key, if any.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.vals[key]
	return ok
}

// Remove deletes key, returning its prior value. Removing then re-Setting a
// key moves it to the end of iteration order, matching the
// remove-then-insert idiom the event-log decoder normalizes its record
// trees with.
func (o *Object) Remove(key string) (Value, bool) {
	v, ok := o.vals[key]
	if !ok {
		return nil, false
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the fields in insertion order. Callers must not mutate the
// returned slice.
func (o *Object) Keys() []string {
	return o.keys
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.keys)
}

// MarshalJSON renders the object preserving insertion order, which the
// standard library's map-backed encoding cannot do.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil || len(o.keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalValue(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case *Object:
		return val.MarshalJSON()
	case []Value:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			eb, err := marshalValue(e)
			if err != nil {
				return nil, err
			}
			buf.Write(eb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(val)
	}
}
