// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package decode

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// filetimeEpoch is 1601-01-01 00:00:00 UTC, the origin of the Windows
// FILETIME tick count.
var filetimeEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// oleEpoch is 1899-12-30 00:00:00 UTC, the origin of the OLE Automation
// date used by native ESE DateTime/F64 columns.
var oleEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// FILETIMEToUTC converts a Windows FILETIME tick count (100-nanosecond
// intervals since 1601-01-01 UTC) to a UTC instant.
func FILETIMEToUTC(ticks uint64) time.Time {
	return filetimeEpoch.Add(time.Duration(ticks/10) * time.Microsecond)
}

// OLEToUTC converts a Microsoft OLE Automation date (fractional days since
// 1899-12-30 UTC) to a UTC instant.
func OLEToUTC(days float64) time.Time {
	return oleEpoch.Add(time.Duration(days * float64(24*time.Hour)))
}

// DecodeSID renders a binary Windows Security Identifier in its standard
// string form: revision byte, sub-authority count, a 6-byte big-endian
// identifier authority, then that many 4-byte little-endian sub-authorities.
func DecodeSID(b []byte) (string, error) {
	if len(b) < 8 {
		return "", fmt.Errorf("sid: %d bytes is too short for a header", len(b))
	}
	revision := b[0]
	subAuthorityCount := int(b[1])

	var identifierAuthority uint64
	for i := 0; i < 6; i++ {
		identifierAuthority |= uint64(b[2+i]) << (8 * (5 - i))
	}

	want := 8 + subAuthorityCount*4
	if len(b) < want {
		return "", fmt.Errorf("sid: need %d bytes for %d sub-authorities, got %d", want, subAuthorityCount, len(b))
	}

	var sb strings.Builder
	sb.WriteString("S-")
	sb.WriteString(strconv.Itoa(int(revision)))
	sb.WriteByte('-')
	sb.WriteString(strconv.FormatUint(identifierAuthority, 10))

	offset := 8
	for i := 0; i < subAuthorityCount; i++ {
		sub := uint32(b[offset]) | uint32(b[offset+1])<<8 | uint32(b[offset+2])<<16 | uint32(b[offset+3])<<24
		sb.WriteByte('-')
		sb.WriteString(strconv.FormatUint(uint64(sub), 10))
		offset += 4
	}
	return sb.String(), nil
}
