// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// FieldKind discriminates a tabular column's decoded type.
type FieldKind string

const (
	FieldString  FieldKind = "string"
	FieldInteger FieldKind = "integer"
	FieldFloat   FieldKind = "float"
	FieldDate    FieldKind = "date"
)

// DateFormatKind discriminates a date parsing strategy.
type DateFormatKind string

const (
	DateRFC2822 DateFormatKind = "rfc2822"
	DateRFC3339 DateFormatKind = "rfc3339"
	DatePattern DateFormatKind = "pattern"
)

// rfc2822Layout accepts non-zero-padded days ("1 Jul" as well as "01 Jul"),
// matching the looser RFC 2822 grammar that RFC1123Z's fixed-width layout
// rejects.
const rfc2822Layout = "Mon, 2 Jan 2006 15:04:05 -0700"

// DateFormat is a configured date-parsing strategy: a fixed RFC variant or
// a caller-supplied Go time layout pattern.
type DateFormat struct {
	Kind        DateFormatKind
	Pattern     string
	HasTimezone bool
}

type dateFormatYAML struct {
	Type        string `yaml:"type"`
	Pattern     string `yaml:"pattern,omitempty"`
	HasTimezone bool   `yaml:"has_timezone,omitempty"`
}

func (d *DateFormat) UnmarshalYAML(node *yaml.Node) error {
	var raw dateFormatYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch DateFormatKind(raw.Type) {
	case DateRFC2822:
		*d = DateFormat{Kind: DateRFC2822}
	case DateRFC3339:
		*d = DateFormat{Kind: DateRFC3339}
	case DatePattern:
		if raw.Pattern == "" {
			return fmt.Errorf("date format %q: pattern is required", raw.Type)
		}
		*d = DateFormat{Kind: DatePattern, Pattern: raw.Pattern, HasTimezone: raw.HasTimezone}
	default:
		return fmt.Errorf("unknown date format %q", raw.Type)
	}
	return nil
}

// Parse parses s per this format and returns the UTC instant.
func (d DateFormat) Parse(s string) (time.Time, error) {
	var layout string
	switch d.Kind {
	case DateRFC2822:
		layout = rfc2822Layout
	case DateRFC3339:
		layout = time.RFC3339
	case DatePattern:
		layout = d.Pattern
	default:
		return time.Time{}, fmt.Errorf("date format not configured")
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FieldSpec is one column's type override.
type FieldSpec struct {
	Kind            FieldKind
	Mandatory       bool
	InputDateFormat *DateFormat
}

type fieldSpecYAML struct {
	Type            string      `yaml:"type"`
	Mandatory       bool        `yaml:"mandatory,omitempty"`
	InputDateFormat *DateFormat `yaml:"input_date_format,omitempty"`
}

func (f *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw fieldSpecYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch FieldKind(raw.Type) {
	case FieldString, FieldInteger, FieldFloat:
		*f = FieldSpec{Kind: FieldKind(raw.Type), Mandatory: raw.Mandatory}
	case FieldDate:
		*f = FieldSpec{Kind: FieldDate, Mandatory: raw.Mandatory, InputDateFormat: raw.InputDateFormat}
	default:
		return fmt.Errorf("unknown field type %q", raw.Type)
	}
	return nil
}

// TabularMapping configures the tabular (CSV) decoder: the logical topic
// a file's rows belong to, the optional sort column, delimiter, default
// date format, and per-column type overrides.
type TabularMapping struct {
	Topic             string               `yaml:"topic"`
	SortField         string               `yaml:"sort_field,omitempty"`
	CSVDelimiter      string               `yaml:"csv_delimiter,omitempty"`
	DefaultDateFormat DateFormat           `yaml:"default_date_format"`
	Fields            map[string]FieldSpec `yaml:"fields"`
}

// Delimiter returns the configured delimiter rune, defaulting to comma.
func (m TabularMapping) Delimiter() rune {
	if m.CSVDelimiter == "" {
		return ','
	}
	return []rune(m.CSVDelimiter)[0]
}

// LoadTabularMapping parses a tabular mapping document from raw YAML bytes.
func LoadTabularMapping(data []byte) (*TabularMapping, error) {
	var m TabularMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing tabular mapping: %w", err)
	}
	if m.Topic == "" {
		return nil, fmt.Errorf("tabular mapping: topic is required")
	}
	return &m, nil
}
