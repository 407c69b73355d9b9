// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package decode

import (
	"fmt"
	"os"
	"time"

	"github.com/Velocidex/regparser"
)

// LoadRegistryHive opens an NT registry hive file at path with
// github.com/Velocidex/regparser and returns the subtree rooted at rootName
// as a RegistryKey tree, the already-decoded boundary type Registry walks.
//
// rootName is a backslash-delimited key path relative to the hive root
// (e.g. "ControlSet001\Control"), matching the config's parser.root_name.
func LoadRegistryHive(path, rootName string) (*RegistryKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}
	defer f.Close()

	hive, err := regparser.NewRegistry(f)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: parse hive: %w", path, err)
	}

	root := hive.OpenKey(rootName)
	if root == nil {
		return nil, fmt.Errorf("registry: %s: root key %q not found", path, rootName)
	}

	return convertHiveKey(root), nil
}

func convertHiveKey(key *regparser.CM_KEY_NODE) *RegistryKey {
	out := &RegistryKey{
		Name:      key.Name(),
		Timestamp: timeToFILETIME(key.LastWriteTime().Time()),
	}
	if class := key.ClassName(); class != "" {
		out.Class = class
		out.HasClass = true
	}

	for _, v := range key.Values() {
		out.Values = append(out.Values, convertHiveValue(v))
	}
	for _, sub := range key.Subkeys() {
		out.Subkeys = append(out.Subkeys, convertHiveKey(sub))
	}
	return out
}

func convertHiveValue(v *regparser.CM_KEY_VALUE) RegistryValue {
	out := RegistryValue{Name: v.ValueName()}
	data := v.ValueData()
	if b, ok := data.Data.([]byte); ok {
		out.Raw = b
	} else {
		out.Raw = []byte(fmt.Sprintf("%v", data.Data))
	}

	switch data.Type {
	case regparser.REG_SZ, regparser.REG_EXPAND_SZ:
		out.Kind = RegSZ
		if data.Type == regparser.REG_EXPAND_SZ {
			out.Kind = RegExpandSZ
		}
		if s, ok := data.Data.(string); ok {
			out.Text = s
		} else {
			out.Text = fmt.Sprintf("%v", data.Data)
		}
	case regparser.REG_MULTI_SZ:
		out.Kind = RegMultiSZ
		if ss, ok := data.Data.([]string); ok {
			out.MultiString = ss
		}
	case regparser.REG_DWORD, regparser.REG_DWORD_BIG_ENDIAN:
		out.Kind = RegDWord
		out.DWord = toUint32(data.Data)
	case regparser.REG_QWORD:
		out.Kind = RegQWord
		out.QWord = toUint64(data.Data)
	case regparser.REG_BINARY, regparser.REG_NONE:
		out.Kind = RegBinary
		if b, ok := data.Data.([]byte); ok {
			out.Binary = b
		}
	default:
		out.Kind = RegUnsupported
		out.ParseErr = fmt.Errorf("registry: unsupported value type %d", data.Type)
	}
	return out
}

func toUint32(v interface{}) uint32 {
	switch n := v.(type) {
	case uint32:
		return n
	case uint64:
		return uint32(n)
	case int64:
		return uint32(n)
	default:
		return 0
	}
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case int64:
		return uint64(n)
	default:
		return 0
	}
}

// timeToFILETIME inverts FILETIMEToUTC, since regparser surfaces key
// timestamps as time.Time but RegistryKey stores raw FILETIME ticks to stay
// the same boundary type walkRegistryKey already consumes.
func timeToFILETIME(t time.Time) uint64 {
	delta := t.Sub(filetimeEpoch)
	if delta < 0 {
		return 0
	}
	return uint64(delta.Microseconds()) * 10
}
