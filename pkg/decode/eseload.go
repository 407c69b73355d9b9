// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package decode

import (
	"fmt"
	"os"
	"time"

	"www.velocidex.com/golang/go-ese/parser"
)

// OpenESEDatabase opens a SRUM database file at path with
// www.velocidex.com/golang/go-ese and returns its decoded table set, the
// already-decoded EseDatabase boundary type ESEDatabase walks.
//
// Only the id-map table and the 10 fixed SRUM tables srumTables lists are
// extracted; a SRUM table
// missing from the file (older SRUM schema, a non-SRUM ESE database) is
// simply absent from the returned map, and ESEDatabase logs that table's
// skip rather than failing the whole database.
func OpenESEDatabase(path string) (EseDatabase, error) {
	f, err := os.Open(path)
	if err != nil {
		return EseDatabase{}, fmt.Errorf("ese: open %s: %w", path, err)
	}
	defer f.Close()

	catalog, err := parser.ReadCatalog(f)
	if err != nil {
		return EseDatabase{}, fmt.Errorf("ese: %s: read catalog: %w", path, err)
	}

	wanted := make(map[string]bool, len(srumTables())+1)
	wanted[idMapTableName] = true
	for _, st := range srumTables() {
		wanted[st.name] = true
	}

	db := EseDatabase{Tables: make(map[string]EseTable, len(wanted))}
	for name := range wanted {
		table, err := catalog.OpenTable(f, name)
		if err != nil {
			continue
		}
		converted, err := convertEseTable(f, table)
		if err != nil {
			continue
		}
		db.Tables[name] = converted
	}
	return db, nil
}

func convertEseTable(f *os.File, table *parser.Table) (EseTable, error) {
	records, err := table.GetAllRecords(f)
	if err != nil {
		return EseTable{}, err
	}

	colIndex := make(map[string]int, len(table.Columns))
	out := EseTable{Columns: make([]EseColumn, len(table.Columns))}
	for i, col := range table.Columns {
		out.Columns[i] = EseColumn{Name: col.Name}
		colIndex[col.Name] = i
	}

	for _, rec := range records {
		for name, idx := range colIndex {
			out.Columns[idx].Values = append(out.Columns[idx].Values, convertEseValue(rec[name]))
		}
	}
	return out, nil
}

// convertEseValue classifies one decoded go-ese record value by its native
// Go type rather than the JET column-type constant, since go-ese already
// resolves JET_coltyp into native Go values (string, integer, float, bool,
// []byte, time.Time) before handing them back.
func convertEseValue(raw interface{}) EseValue {
	switch v := raw.(type) {
	case nil:
		return EseValue{Kind: EseNull}
	case bool:
		return EseValue{Kind: EseBool, Bool: v}
	case int8:
		return EseValue{Kind: EseU8, Int: int64(v)}
	case uint8:
		return EseValue{Kind: EseU8, Int: int64(v)}
	case int16:
		return EseValue{Kind: EseI16, Int: int64(v)}
	case uint16:
		return EseValue{Kind: EseU16, Int: int64(v)}
	case int32:
		return EseValue{Kind: EseI32, Int: int64(v)}
	case uint32:
		return EseValue{Kind: EseU32, Int: int64(v)}
	case int64:
		return EseValue{Kind: EseI64, Int: v}
	case uint64:
		return EseValue{Kind: EseI64, Int: int64(v)}
	case float32:
		return EseValue{Kind: EseF32, Float: float64(v)}
	case float64:
		return EseValue{Kind: EseF64, Float: v}
	case time.Time:
		return EseValue{Kind: EseDateTime, Float: timeToOLE(v)}
	case string:
		return EseValue{Kind: EseText, Text: v}
	case []byte:
		return EseValue{Kind: EseBinary, Bytes: v}
	default:
		return EseValue{Kind: EseNull}
	}
}

// timeToOLE inverts OLEToUTC for values go-ese has already resolved to
// time.Time.
func timeToOLE(t time.Time) float64 {
	return t.Sub(oleEpoch).Hours() / 24
}
