// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package decode

import (
	"fmt"
	"time"

	evtx "github.com/0xrawsec/golang-evtx/evtx"

	"github.com/kraklabs/sift/pkg/envelope"
	"github.com/kraklabs/sift/pkg/topic"
)

// EventLogTopic is the fixed logical topic event-log rows are written to;
// unlike the tabular decoder it is not configurable per run.
const EventLogTopic = "evtx"

// EventLogSortField is the dotted path the bus/store schema sorts on.
const EventLogSortField = "System.TimeCreated"

// EventLogFields is the partial field definition the topic catalog
// registers the event-log topic with, naming the nested attributes the
// analytic store schema needs typed columns for.
func EventLogFields() []topic.FieldDef {
	return []topic.FieldDef{
		{Name: "System.Execution.ProcessID", Type: topic.Int64},
		{Name: "System.Execution.ThreadID", Type: topic.Int64},
		{Name: "System.EventID", Type: topic.Uint16},
		{Name: "System.Version", Type: topic.Int64},
		{Name: "System.Level", Type: topic.Uint8},
		{Name: "System.Task", Type: topic.Int64},
		{Name: "System.Opcode", Type: topic.Int64},
		{Name: "System.Keywords", Type: topic.String},
		{Name: "System.UserID", Type: topic.String},
		{Name: "System.EventRecordID", Type: topic.Int64},
		{Name: "System.Provider.Name", Type: topic.String},
		{Name: "System.Provider.Guid", Type: topic.String},
		{Name: "System.Channel", Type: topic.String},
		{Name: "System.Computer", Type: topic.String},
		{Name: EventLogSortField, Type: topic.Date},
	}
}

// EventLog decodes a Windows binary event-log file one record at a time,
// normalizing each record's System block before writing it to sink.
func EventLog(path string, src Source, sink Sink) (int, error) {
	f, err := evtx.New(path)
	if err != nil {
		return 0, fmt.Errorf("event-log: open %s: %w", path, err)
	}

	rows := 0
	for record := range f.FastEvents() {
		obj, err := envelope.DecodeOrderedJSON(record)
		if err != nil {
			return rows, fmt.Errorf("event-log: %s: record %d: decode: %w", path, rows, err)
		}
		root, err := envelope.AsObject(obj)
		if err != nil {
			return rows, fmt.Errorf("event-log: %s: record %d: %w", path, rows, err)
		}

		data, sortData, err := normalizeEvent(root)
		if err != nil {
			return rows, fmt.Errorf("event-log: %s: record %d: %w", path, rows, err)
		}

		t := src.NewTuple()
		t.SetSortData(sortData)
		if err := t.SetData(data); err != nil {
			return rows, fmt.Errorf("event-log: %s: record %d: %w", path, rows, err)
		}
		if err := sink.Write(t); err != nil {
			return rows, fmt.Errorf("event-log: %s: record %d: write: %w", path, rows, err)
		}
		rows++
	}
	return rows, nil
}

// normalizeEvent pulls the "Event" node out of the raw decoded record and,
// within its System block, flattens the EVTX library's *_attributes
// wrappers into the plain field names the rest of the pipeline expects:
// Provider_attributes -> Provider, Execution_attributes -> Execution,
// Security_attributes.UserID -> UserID, and
// TimeCreated_attributes.SystemTime -> TimeCreated as the canonical UTC
// string. sort_data is the UTC epoch seconds of that timestamp.
func normalizeEvent(root *envelope.Object) (*envelope.Object, int64, error) {
	eventVal, ok := root.Remove("Event")
	if !ok {
		return nil, 0, fmt.Errorf("Event data not found")
	}
	event, err := envelope.AsObject(eventVal)
	if err != nil {
		return nil, 0, fmt.Errorf("Event: %w", err)
	}

	systemVal, ok := event.Get("System")
	if !ok {
		return nil, 0, fmt.Errorf("System data not found")
	}
	system, err := envelope.AsObject(systemVal)
	if err != nil {
		return nil, 0, fmt.Errorf("Event.System: %w", err)
	}

	if v, ok := system.Remove("Provider_attributes"); ok {
		system.Set("Provider", v)
	}
	if v, ok := system.Remove("Execution_attributes"); ok {
		system.Set("Execution", v)
	}
	if v, ok := system.Remove("Security_attributes"); ok {
		sec, err := envelope.AsObject(v)
		if err != nil {
			return nil, 0, fmt.Errorf("Event.System.Security_attributes: %w", err)
		}
		uid, ok := sec.Get("UserID")
		if !ok {
			return nil, 0, fmt.Errorf("Event.System.Security_attributes.UserID not found")
		}
		system.Set("UserID", uid)
	}

	tcVal, ok := system.Remove("TimeCreated_attributes")
	if !ok {
		return nil, 0, fmt.Errorf("Event.System.TimeCreated_attributes not found")
	}
	tcObj, err := envelope.AsObject(tcVal)
	if err != nil {
		return nil, 0, fmt.Errorf("Event.System.TimeCreated_attributes: %w", err)
	}
	sysTimeVal, ok := tcObj.Get("SystemTime")
	if !ok {
		return nil, 0, fmt.Errorf("Event.System.TimeCreated_attributes.SystemTime not found")
	}
	sysTime, ok := sysTimeVal.(string)
	if !ok {
		return nil, 0, fmt.Errorf("Event.System.TimeCreated_attributes.SystemTime is not a string")
	}

	ts, err := time.Parse(time.RFC3339Nano, sysTime)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing TimeCreated SystemTime %q: %w", sysTime, err)
	}
	ts = ts.UTC()
	system.Set("TimeCreated", envelope.FormatDate(ts))

	return event, ts.Unix(), nil
}
