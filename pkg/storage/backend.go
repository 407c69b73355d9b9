// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package storage provides the columnar analytic store backend the store
// sink writes batches to.
package storage

import "context"

// Row is one flattened envelope row as the analytic store schema expects
// it: provenance columns plus data serialized as a JSON string.
type Row struct {
	ImportDate   string
	Computer     string
	OriginalFile string
	ArchiveName  string
	ID           string
	Data         string // JSON-encoded
}

// Backend is the interface the store sink drives. It provides batched
// inserts and a schema-creation hook; there is no query surface because
// nothing in this pipeline reads the analytic store back.
type Backend interface {
	// InsertRows commits one batch to table. It does not create the table;
	// EnsureTable must have created it beforehand.
	InsertRows(ctx context.Context, table string, rows []Row) error

	// EnsureTable creates table if it does not already exist. Safe to call
	// more than once.
	EnsureTable(ctx context.Context, table string) error

	// Close releases any resources held by the backend.
	Close() error
}
