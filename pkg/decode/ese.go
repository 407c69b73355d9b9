// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package decode

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kraklabs/sift/pkg/envelope"
	"github.com/kraklabs/sift/pkg/topic"
)

// EseValueKind discriminates a decoded ESE column value's storage type.
type EseValueKind int

const (
	EseNull EseValueKind = iota
	EseBool
	EseU8
	EseI16
	EseI32
	EseU16
	EseU32
	EseF32
	EseF64   // also used for the OLE-time date representation
	EseI64   // also used for Currency
	EseText  // also Large Text
	EseDateTime
	EseBinary // also Large Binary, GUID, SuperLarge
)

// EseValue is one already-decoded column value. The binary ESE/JET format
// itself is parsed by an external reader; this type is the boundary the
// SRUM table decoder normalizes from.
type EseValue struct {
	Kind  EseValueKind
	Bool  bool
	Int   int64
	Float float64
	Text  string
	Bytes []byte
}

// EseColumn names one column and the raw values of every row, in row order.
type EseColumn struct {
	Name   string
	Values []EseValue
}

// EseTable is one already-opened table: its columns (each carrying every
// row's value for that column) in catalog order.
type EseTable struct {
	Columns []EseColumn
}

// NumRows reports the row count, derived from the first column.
func (t EseTable) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// EseDatabase is an already-opened SRUM database: its tables keyed by their
// GUID-style internal name, including the id-map table.
type EseDatabase struct {
	Tables map[string]EseTable
}

// idMapTableName is the table SRUM uses to resolve indexed AppId/UserId
// strings (and SIDs) referenced by other tables.
const idMapTableName = "SruDbIdMapTable"

// srumSortField is the column SRUM tables use to prefix the record
// identifier, matching the analytic store's time-ordering column.
const srumSortField = "TimeStamp"

type srumTable struct {
	topic  string
	name   string
	fields []topic.FieldDef
}

func intField(name string) topic.FieldDef  { return topic.FieldDef{Name: name, Type: topic.Int32} }
func int64Field(name string) topic.FieldDef { return topic.FieldDef{Name: name, Type: topic.Int64} }
func strField(name string) topic.FieldDef  { return topic.FieldDef{Name: name, Type: topic.String} }
func dateField(name string) topic.FieldDef { return topic.FieldDef{Name: name, Type: topic.Date} }

// srumTables lists the 10 fixed SRUM tables the ESE decoder extracts, named
// by their internal GUID-style table identifiers, with the column catalog
// each one's analytic-store topic is registered with.
func srumTables() []srumTable {
	return []srumTable{
		{
			topic: "srum_app_timeline", name: "{5C8CF1C7-7257-4F13-B223-970EF5939312}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				intField("Flags"), int64Field("EndTime"), intField("DurationMS"), intField("SpanMS"),
				intField("TimelineEnd"), int64Field("InFocusTimeline"), int64Field("UserInputTimeline"),
				int64Field("CompRenderedTimeline"), int64Field("CompDirtiedTimeline"), int64Field("CompPropagatedTimeline"),
				int64Field("AudioInTimeline"), int64Field("AudioOutTimeline"), int64Field("CpuTimeline"),
				int64Field("DiskTimeline"), int64Field("NetworkTimeline"), int64Field("MBBTimeline"),
				intField("InFocusS"), intField("PSMForegroundS"), intField("UserInputS"), intField("CompRenderedS"),
				intField("CompDirtiedS"), intField("CompPropagatedS"), intField("AudioInS"), intField("AudioOutS"),
				int64Field("Cycles"), int64Field("CyclesBreakdown"), int64Field("CyclesAttr"), int64Field("CyclesAttrBreakdown"),
				int64Field("CyclesWOB"), int64Field("CyclesWOBBreakdown"), int64Field("DiskRaw"),
				int64Field("NetworkTailRaw"), int64Field("NetworkBytesRaw"), int64Field("MBBTailRaw"), int64Field("MBBBytesRaw"),
				intField("DisplayRequiredS"), int64Field("DisplayRequiredTimeline"), int64Field("KeyboardInputTimeline"),
				intField("KeyboardInputS"), intField("MouseInputS"),
			},
		},
		{
			topic: "srum_application_resources", name: "{D10CA2FE-6FCF-4F6D-848E-B2E99266FA89}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				int64Field("ForegroundCycleTime"), int64Field("BackgroundCycleTime"), int64Field("FaceTime"),
				intField("ForegroundContextSwitches"), intField("BackgroundContextSwitches"),
				int64Field("ForegroundBytesRead"), int64Field("ForegroundBytesWritten"),
				intField("ForegroundNumReadOperations"), intField("ForegroundNumWriteOperations"), intField("ForegroundNumberOfFlushes"),
				int64Field("BackgroundBytesRead"), int64Field("BackgroundBytesWritten"),
				intField("BackgroundNumReadOperations"), intField("BackgroundNumWriteOperations"), intField("BackgroundNumberOfFlushes"),
			},
		},
		{
			topic: "srum_energy_estimation", name: "{DA73FB89-2BEA-4DDC-86B8-6E048C6DA477}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"), strField("BinaryData"),
			},
		},
		{
			topic: "srum_energy_usage", name: "{FEE4E14F-02A9-4550-B5CE-5FA2DA202E37}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				int64Field("EventTimestamp"), intField("StateTransition"), intField("DesignedCapacity"),
				intField("FullChargedCapacity"), intField("ChargeLevel"), intField("CycleCount"), strField("ConfigurationHash"),
			},
		},
		{
			topic: "srum_energy_usage_long_term", name: "{FEE4E14F-02A9-4550-B5CE-5FA2DA202E37}LT",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				intField("ActiveAcTime"), intField("CsAcTime"), intField("ActiveDcTime"), intField("CsDcTime"),
				intField("ActiveDischargeTime"), intField("CsDischargeTime"), intField("ActiveEnergy"),
				strField("CsEnergy"), strField("DesignedCapacity"), intField("FullChargedCapacity"),
				intField("CycleCount"), strField("ConfigurationHash"),
			},
		},
		{
			topic: "srum_network_connectivity_usage", name: "{DD6636C4-8929-4683-974E-22C046A43763}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				int64Field("InterfaceLuid"), intField("L2ProfileId"), intField("ConnectedTime"),
				dateField("ConnectStartTime"), intField("L2ProfileFlags"),
			},
		},
		{
			topic: "srum_network_data_usage", name: "{973F5D5C-1D90-4944-BE8E-24B94231A174}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				int64Field("InterfaceLuid"), intField("L2ProfileId"), intField("L2ProfileFlags"),
				int64Field("BytesSent"), int64Field("BytesRecvd"),
			},
		},
		{
			topic: "srum_tagged_energy", name: "{B6D82AF1-F780-4E17-8077-6CB9AD8A6FC4}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				int64Field("Metadata"), strField("EnergyData"), strField("Tag"),
			},
		},
		{
			topic: "srum_vfuprov", name: "{7ACBBAA3-D029-4BE4-9A7A-0885927F1D8F}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				int64Field("Flags"), int64Field("StartTime"), int64Field("EndTime"), strField("Usage"),
			},
		},
		{
			topic: "srum_wpn_provider", name: "{D10CA2FE-6FCF-4F6D-848E-B2E99266FA86}",
			fields: []topic.FieldDef{
				intField("AutoIncId"), dateField("TimeStamp"), strField("AppId"), strField("UserId"),
				intField("NotificationType"), intField("PayloadSize"), intField("NetworkType"),
			},
		},
	}
}

// SrumTopics returns the 10 fixed SRUM topics, ready for topic.Catalog
// registration.
func SrumTopics() []topic.Topic {
	tables := srumTables()
	out := make([]topic.Topic, 0, len(tables))
	for _, st := range tables {
		out = append(out, topic.Topic{
			TopicName:     st.topic,
			TableName:     st.topic,
			Fields:        st.fields,
			SortFieldName: srumSortField,
		})
	}
	return out
}

// SinkFactory resolves the sink a decoder should write a topic's rows to.
// The ESE decoder is the only one that needs it: it emits into as many
// topics as there are SRUM tables, one sink each.
type SinkFactory func(topic string) (Sink, error)

// columnSemantic classifies a SRUM column for value conversion.
type columnSemantic int

const (
	semanticRaw columnSemantic = iota
	semanticIndexedString
	semanticDate
)

func classifyColumn(name string) columnSemantic {
	switch name {
	case "AppId", "UserId":
		return semanticIndexedString
	case "TimeStamp", "ConnectStartTime":
		return semanticDate
	default:
		return semanticRaw
	}
}

// ESEDatabase extracts all 10 fixed SRUM tables from db. Each table writes
// to its own topic via factory; a single table's failure is logged and does
// not abort the others. It returns the total row count across every table.
func ESEDatabase(db EseDatabase, src Source, factory SinkFactory, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	index, err := buildIDMap(db)
	if err != nil {
		return 0, fmt.Errorf("ese: build id map: %w", err)
	}

	total := 0
	for _, st := range srumTables() {
		n, err := parseSrumTable(db, st, index, src, factory, logger)
		total += n
		if err != nil {
			logger.Warn("decode.ese.table_error", "topic", st.topic, "table", st.name, "error", err)
		}
	}
	return total, nil
}

// buildIDMap reads the id-map table in full: column 0 is the entry type
// (3 means the blob is a SID), column 1 the integer index other tables
// reference, column 2 the blob itself.
func buildIDMap(db EseDatabase) (map[int64]string, error) {
	table, ok := db.Tables[idMapTableName]
	if !ok {
		return nil, fmt.Errorf("table %q not found", idMapTableName)
	}
	if len(table.Columns) < 3 {
		return nil, fmt.Errorf("table %q: expected at least 3 columns, got %d", idMapTableName, len(table.Columns))
	}

	typeCol, idxCol, blobCol := table.Columns[0], table.Columns[1], table.Columns[2]
	index := make(map[int64]string, table.NumRows())

	for i := 0; i < table.NumRows(); i++ {
		idType := typeCol.Values[i].Int
		idIndex := idxCol.Values[i].Int
		blob := blobCol.Values[i].Bytes
		if blob == nil {
			continue
		}

		var value string
		if idType == 3 {
			sid, err := DecodeSID(blob)
			if err != nil {
				continue
			}
			value = sid
		} else {
			value = strings.ReplaceAll(string(blob), "\x00", "")
		}
		index[idIndex] = value
	}
	return index, nil
}

func parseSrumTable(db EseDatabase, st srumTable, index map[int64]string, src Source, factory SinkFactory, logger *slog.Logger) (int, error) {
	table, ok := db.Tables[st.name]
	if !ok {
		return 0, fmt.Errorf("table %q not found", st.name)
	}

	sink, err := factory(st.topic)
	if err != nil {
		return 0, fmt.Errorf("sink for topic %q: %w", st.topic, err)
	}

	rows := 0
	for i := 0; i < table.NumRows(); i++ {
		data := envelope.NewObject()
		var sortData *int64

		for _, col := range table.Columns {
			v := col.Values[i]
			switch classifyColumn(col.Name) {
			case semanticIndexedString:
				if s, ok := index[v.Int]; ok {
					data.Set(col.Name, s)
				} else {
					data.Set(col.Name, nil)
				}
			case semanticDate:
				t, ok := eseDate(v)
				if !ok {
					data.Set(col.Name, nil)
					continue
				}
				if col.Name == srumSortField {
					sd := t.Unix()
					sortData = &sd
				}
				data.Set(col.Name, envelope.FormatDate(t))
			default:
				data.Set(col.Name, eseRawValue(v))
			}
		}

		tpl := src.NewTuple()
		if sortData != nil {
			tpl.SetSortData(*sortData)
		}
		if err := tpl.SetData(data); err != nil {
			return rows, fmt.Errorf("table %q: row %d: %w", st.name, i, err)
		}
		if err := sink.Write(tpl); err != nil {
			return rows, fmt.Errorf("table %q: row %d: write: %w", st.name, i, err)
		}
		rows++
	}
	return rows, nil
}

func eseDate(v EseValue) (time.Time, bool) {
	switch v.Kind {
	case EseF64:
		return OLEToUTC(v.Float), true
	case EseDateTime:
		return OLEToUTC(v.Float), true
	case EseI64:
		return FILETIMEToUTC(uint64(v.Int)), true
	default:
		return time.Time{}, false
	}
}

func eseRawValue(v EseValue) envelope.Value {
	switch v.Kind {
	case EseBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case EseU8, EseI16, EseI32, EseU16, EseU32, EseI64:
		return v.Int
	case EseF32, EseF64:
		return v.Float
	case EseDateTime:
		return v.Int
	case EseText:
		return v.Text
	case EseBinary:
		return base64.RawURLEncoding.EncodeToString(v.Bytes)
	default:
		return nil
	}
}
