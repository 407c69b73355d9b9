// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package decode

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/kraklabs/sift/pkg/envelope"
	"github.com/kraklabs/sift/pkg/topic"
)

// HiveTopic is the fixed logical topic registry rows are written to.
const HiveTopic = "hive"

// HiveFields is the partial field definition the topic catalog registers
// the hive topic with.
func HiveFields() []topic.FieldDef {
	return []topic.FieldDef{
		{Name: hiveFieldPath, Type: topic.String},
		{Name: hiveFieldClass, Type: topic.String},
		{Name: hiveFieldDate, Type: topic.Date},
	}
}

// RegistryValueKind discriminates a decoded NT hive value's storage type.
type RegistryValueKind int

const (
	RegSZ RegistryValueKind = iota
	RegExpandSZ
	RegBinary
	RegDWord
	RegQWord
	RegMultiSZ
	RegUnsupported
)

// RegistryValue is one already-decoded hive value. The binary NT-hive
// format itself is parsed by an external reader; this type is the boundary
// the registry decoder normalizes from.
type RegistryValue struct {
	Name string
	Kind RegistryValueKind

	// ParseErr is set when the source reader could not classify the
	// value's stored type; Raw then carries the undecoded bytes so the
	// decoder can still emit a best-effort representation.
	ParseErr error
	Raw      []byte

	Text        string
	Binary      []byte
	DWord       uint32
	QWord       uint64
	MultiString []string
}

// RegistryKey is one already-decoded hive key node: its own timestamp and
// optional class name, its values, and its child keys.
type RegistryKey struct {
	Name      string
	Timestamp uint64 // FILETIME ticks
	Class     string
	HasClass  bool
	Values    []RegistryValue
	Subkeys   []*RegistryKey
}

const (
	hiveFieldPath  = "Path"
	hiveFieldClass = "Class"
	hiveFieldDate  = "TimeStamp"
	hiveFieldValue = "Value"
)

// Registry walks root recursively starting at rootName and writes one
// envelope per key (its own metadata row) and one per value under that key,
// in that order, before descending into subkeys.
func Registry(root *RegistryKey, rootName string, src Source, sink Sink) (int, error) {
	rows := 0
	if err := walkRegistryKey(root, rootName, src, sink, &rows); err != nil {
		return rows, err
	}
	return rows, nil
}

func walkRegistryKey(key *RegistryKey, path string, src Source, sink Sink, rows *int) error {
	path = path + `\` + key.Name

	ts := FILETIMEToUTC(key.Timestamp)
	date := envelope.FormatDate(ts)
	sortData := ts.Unix()

	keyData := envelope.NewObject()
	keyData.Set(hiveFieldPath, path)
	keyData.Set(hiveFieldDate, date)
	if key.HasClass {
		keyData.Set(hiveFieldClass, key.Class)
	}
	if err := writeRegistryRow(src, sink, keyData, sortData); err != nil {
		return fmt.Errorf("registry: key %q: %w", path, err)
	}
	*rows++

	for _, v := range key.Values {
		valueName := v.Name
		if valueName == "" {
			valueName = "Default"
		}
		valuePath := path + `\` + valueName

		data := envelope.NewObject()
		data.Set(hiveFieldPath, valuePath)
		data.Set(hiveFieldDate, date)
		if key.HasClass {
			data.Set(hiveFieldClass, key.Class)
		}
		data.Set(hiveFieldValue, registryValueToJSON(v))

		if err := writeRegistryRow(src, sink, data, sortData); err != nil {
			return fmt.Errorf("registry: value %q: %w", valuePath, err)
		}
		*rows++
	}

	for _, sub := range key.Subkeys {
		if err := walkRegistryKey(sub, path, src, sink, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeRegistryRow(src Source, sink Sink, data *envelope.Object, sortData int64) error {
	t := src.NewTuple()
	t.SetSortData(sortData)
	if err := t.SetData(data); err != nil {
		return err
	}
	return sink.Write(t)
}

// registryValueToJSON renders one value per its storage type. A value whose
// type could not be classified by the source reader is rendered as a JSON
// string carrying its raw bytes lossily decoded, the base64 of those bytes,
// and the classification error, matching the forensic tooling's
// best-effort fallback for vendor-specific or corrupt value types.
func registryValueToJSON(v RegistryValue) envelope.Value {
	if v.ParseErr != nil || v.Kind == RegUnsupported {
		text := strings.ReplaceAll(string(v.Raw), "\x00", "")
		errMsg := "unsupported value type"
		if v.ParseErr != nil {
			errMsg = v.ParseErr.Error()
		}
		return fmt.Sprintf(`{"DataString":"%s", "DataBase64":"%s", "Error":"%s"}`,
			text, base64.RawURLEncoding.EncodeToString(v.Raw), errMsg)
	}
	switch v.Kind {
	case RegSZ, RegExpandSZ:
		return v.Text
	case RegBinary:
		return base64.RawURLEncoding.EncodeToString(v.Binary)
	case RegDWord:
		return int64(v.DWord)
	case RegQWord:
		return int64(v.QWord)
	case RegMultiSZ:
		return strings.Join(v.MultiString, "")
	default:
		return nil
	}
}
