// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package decode

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/kraklabs/sift/pkg/config"
	"github.com/kraklabs/sift/pkg/envelope"
)

// tabularBufferSize is the read buffer allotted to the CSV reader, matching
// the one the original tooling reserves for large artifact exports.
const tabularBufferSize = 1024 * 1024 * 10 // 10 MiB

// converter describes how to turn one column's raw cell text into a JSON
// value and, when it is the sort column, into the sort_data prefix.
type converter struct {
	fieldName  string
	mandatory  bool
	spec       config.FieldSpec
	defaultFmt config.DateFormat
}

func newConverter(fieldName string, spec *config.FieldSpec, defaultFmt config.DateFormat) converter {
	if spec == nil {
		return converter{fieldName: fieldName, spec: config.FieldSpec{Kind: config.FieldString}}
	}
	return converter{fieldName: fieldName, mandatory: spec.Mandatory, spec: *spec, defaultFmt: defaultFmt}
}

func (c converter) dateFormat() config.DateFormat {
	if c.spec.InputDateFormat != nil {
		return *c.spec.InputDateFormat
	}
	return c.defaultFmt
}

func (c converter) toValue(raw string) (envelope.Value, error) {
	switch c.spec.Kind {
	case config.FieldInteger:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.FieldFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.FieldDate:
		t, err := c.dateFormat().Parse(raw)
		if err != nil {
			return nil, err
		}
		return envelope.FormatDate(t), nil
	default:
		return raw, nil
	}
}

// toSortData computes the identifier's domain-time prefix for this column's
// value: the raw integer, the float truncated toward zero, the UTC
// millisecond timestamp for dates, or a 64-bit non-cryptographic hash for
// strings.
func (c converter) toSortData(raw string) (int64, error) {
	switch c.spec.Kind {
	case config.FieldInteger:
		return strconv.ParseInt(raw, 10, 64)
	case config.FieldFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, err
		}
		return int64(math.Trunc(v)), nil
	case config.FieldDate:
		t, err := c.dateFormat().Parse(raw)
		if err != nil {
			return 0, err
		}
		return t.UnixMilli(), nil
	default:
		return int64(xxhash.Sum64String(raw)), nil
	}
}

// TabularError reports a failing row/column/field during decode.
type TabularError struct {
	Line      int
	Column    int
	FieldName string
	Err       error
}

func (e *TabularError) Error() string {
	return fmt.Sprintf("tabular: line %d column %d field %q: %v", e.Line, e.Column, e.FieldName, e.Err)
}

func (e *TabularError) Unwrap() error { return e.Err }

// Tabular decodes one header-driven, schema-mapped delimited file per a
// TabularMapping and writes its rows to sink.
func Tabular(path string, src Source, mapping *config.TabularMapping, bestEffort bool, skipLines int, logger *slog.Logger, sink Sink) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("tabular: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, tabularBufferSize))
	r.Comma = mapping.Delimiter()
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	headers, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("tabular: read header: %w", err)
	}
	headers = append([]string(nil), headers...)

	converters := make([]converter, len(headers))
	sortColumn := -1
	for i, name := range headers {
		var spec *config.FieldSpec
		if s, ok := mapping.Fields[name]; ok {
			spec = &s
		}
		converters[i] = newConverter(name, spec, mapping.DefaultDateFormat)
		if mapping.SortField != "" && name == mapping.SortField {
			sortColumn = i
		}
	}

	rows := 0
	for lineNum := 0; ; lineNum++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if bestEffort {
				logger.Warn("decode.tabular.row_error", "file", path, "line", lineNum, "error", err)
				continue
			}
			return rows, fmt.Errorf("tabular: %s: line %d: %w", path, lineNum, err)
		}
		if lineNum < skipLines {
			continue
		}

		data, sortData, err := convertRecord(converters, record, sortColumn, lineNum)
		if err != nil {
			if bestEffort {
				logger.Warn("decode.tabular.row_error", "file", path, "line", lineNum, "error", err)
				continue
			}
			return rows, err
		}

		t := src.NewTuple()
		if sortData != nil {
			t.SetSortData(*sortData)
		}
		if err := t.SetData(data); err != nil {
			return rows, fmt.Errorf("tabular: %s: line %d: %w", path, lineNum, err)
		}
		if err := sink.Write(t); err != nil {
			return rows, fmt.Errorf("tabular: %s: line %d: write: %w", path, lineNum, err)
		}
		rows++
	}
	return rows, nil
}

func convertRecord(converters []converter, record []string, sortColumn, lineNum int) (*envelope.Object, *int64, error) {
	obj := envelope.NewObject()
	var sortData *int64

	for col, raw := range record {
		if col >= len(converters) {
			break
		}
		conv := converters[col]
		if raw == "" {
			if conv.mandatory {
				return nil, nil, &TabularError{Line: lineNum, Column: col, FieldName: conv.fieldName, Err: fmt.Errorf("mandatory field is empty")}
			}
			continue
		}

		if col == sortColumn {
			sd, err := conv.toSortData(raw)
			if err != nil {
				return nil, nil, &TabularError{Line: lineNum, Column: col, FieldName: conv.fieldName, Err: err}
			}
			sortData = &sd
		}

		value, err := conv.toValue(raw)
		if err != nil {
			return nil, nil, &TabularError{Line: lineNum, Column: col, FieldName: conv.fieldName, Err: err}
		}
		obj.Set(conv.fieldName, value)
	}
	return obj, sortData, nil
}
