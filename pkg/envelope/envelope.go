// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package envelope implements the per-row record (Tuple) that every decoder
// produces and every sink consumes: provenance fields, the content-addressed
// identifier, and the decoded data payload.
package envelope

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
)

// CanonicalDateLayout is the UTC, millisecond-precision date format used
// everywhere a decoded value or envelope field is rendered as a string date.
const CanonicalDateLayout = "2006-01-02 15:04:05.000"

// FormatDate renders t in the canonical UTC string format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(CanonicalDateLayout)
}

var (
	// ErrDataAlreadySet is returned by SetData when called more than once.
	ErrDataAlreadySet = errors.New("envelope: data already set")
	// ErrIDNotDerived is returned by ID when SetData was never called.
	ErrIDNotDerived = errors.New("envelope: id requested before data was set")
)

// Tuple is the unified per-row record: provenance, the derived identifier,
// and the decoded data object.
type Tuple struct {
	importDate   time.Time
	computer     string
	originalFile string
	archiveName  string
	key          [2]byte

	data     *Object
	sortData *int64
	id       string
	idSet    bool
}

// New builds a Tuple with its provenance fields set and its routing key
// derived. data is attached afterward with SetData.
func New(computer, originalFile, archiveName string, importDate time.Time) *Tuple {
	return &Tuple{
		importDate:   importDate,
		computer:     computer,
		originalFile: originalFile,
		archiveName:  archiveName,
		key:          routingKey(computer, originalFile),
	}
}

// routingKey returns the first two bytes of a non-cryptographic 64-bit hash
// of (computer, original_file). It is stable across every record produced
// from the same source file, which is what makes it usable for bus-message
// partitioning.
func routingKey(computer, originalFile string) [2]byte {
	h := xxhash.New()
	_, _ = h.Write([]byte(computer))
	_, _ = h.Write([]byte{0x00})
	_, _ = h.Write([]byte(originalFile))
	sum := h.Sum(nil)
	var k [2]byte
	copy(k[:], sum[:2])
	return k
}

// Key returns the 2-byte routing key.
func (t *Tuple) Key() [2]byte { return t.key }

// Computer returns the source computer name.
func (t *Tuple) Computer() string { return t.computer }

// OriginalFile returns the source file path within its archive.
func (t *Tuple) OriginalFile() string { return t.originalFile }

// ArchiveName returns the archive this row came from.
func (t *Tuple) ArchiveName() string { return t.archiveName }

// ImportDate returns the ingestion timestamp this Tuple was created with.
func (t *Tuple) ImportDate() time.Time { return t.importDate }

// SetSortData attaches the optional domain-time sort prefix. Call before
// SetData; it only affects identifier derivation, not serialization order.
func (t *Tuple) SetSortData(v int64) {
	t.sortData = &v
}

// SortData returns the sort prefix, if any.
func (t *Tuple) SortData() (int64, bool) {
	if t.sortData == nil {
		return 0, false
	}
	return *t.sortData, true
}

// SetData attaches the decoded payload and derives the identifier. It may be
// called at most once per Tuple.
func (t *Tuple) SetData(data *Object) error {
	if t.idSet {
		return ErrDataAlreadySet
	}
	if data == nil {
		data = NewObject()
	}
	t.data = data
	t.id = deriveID(t.data, t.computer, t.originalFile, t.sortData)
	t.idSet = true
	return nil
}

// Clone returns a shallow copy of t. The sink fan-out uses this to give
// each sink its own Tuple value when multiplexing one decoded row to
// several sinks; the underlying data object is read-only
// once SetData has run, so sharing it across clones is safe.
func (t *Tuple) Clone() *Tuple {
	clone := *t
	return &clone
}

// Data returns the decoded payload, or nil if SetData has not been called.
func (t *Tuple) Data() *Object { return t.data }

// ID returns the derived 22-character identifier.
func (t *Tuple) ID() (string, error) {
	if !t.idSet {
		return "", ErrIDNotDerived
	}
	return t.id, nil
}

// tupleJSON mirrors Tuple's wire field order: import_date, computer,
// original_file, archive_name, id, data.
type tupleJSON struct {
	ImportDate   string  `json:"import_date"`
	Computer     string  `json:"computer"`
	OriginalFile string  `json:"original_file"`
	ArchiveName  string  `json:"archive_name"`
	ID           string  `json:"id"`
	Data         *Object `json:"data"`
}

// ToJSONString serializes the envelope with fields in the order
// import_date, computer, original_file, archive_name, id, data. A Tuple
// whose data was never set serializes data as an empty object.
func (t *Tuple) ToJSONString() (string, error) {
	data := t.data
	if data == nil {
		data = NewObject()
	}
	b, err := json.Marshal(tupleJSON{
		ImportDate:   FormatDate(t.importDate),
		Computer:     t.computer,
		OriginalFile: t.originalFile,
		ArchiveName:  t.archiveName,
		ID:           t.id,
		Data:         data,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
