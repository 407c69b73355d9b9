// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseBackend implements Backend against a ClickHouse server. It is
// the only backend the store sink ships with; the pipeline never queries
// it back, so the interface stays write-only.
type ClickHouseBackend struct {
	conn   clickhouse.Conn
	mu     sync.Mutex
	closed bool

	tablesMu sync.Mutex
	tables   map[string]bool
}

// ClickHouseConfig configures the backend connection.
type ClickHouseConfig struct {
	// Server is the ClickHouse native-protocol address, host:port.
	Server string
	// Login and Password are optional basic auth credentials.
	Login    string
	Password string
}

// NewClickHouseBackend opens a connection to a ClickHouse server.
func NewClickHouseBackend(cfg ClickHouseConfig) (*ClickHouseBackend, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("clickhouse: server address is required")
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Server},
		Auth: clickhouse.Auth{
			Username: cfg.Login,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse: open connection: %w", err)
	}
	return &ClickHouseBackend{conn: conn, tables: make(map[string]bool)}, nil
}

// EnsureTable creates table with the envelope's flat schema if it does not
// already exist. Idempotent; safe to call once per (archive, topic) sink.
func (b *ClickHouseBackend) EnsureTable(ctx context.Context, table string) error {
	b.tablesMu.Lock()
	defer b.tablesMu.Unlock()
	if b.tables[table] {
		return nil
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		import_date String,
		computer String,
		original_file String,
		archive_name String,
		id String,
		data String
	) ENGINE = MergeTree ORDER BY (computer, original_file, id)`, table)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("clickhouse: backend is closed")
	}
	if err := b.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("clickhouse: create table %s: %w", table, err)
	}
	b.tables[table] = true
	return nil
}

// InsertRows commits one batch of rows to table.
func (b *ClickHouseBackend) InsertRows(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("clickhouse: backend is closed")
	}

	batch, err := b.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", table))
	if err != nil {
		return fmt.Errorf("clickhouse: prepare batch for %s: %w", table, err)
	}
	for _, r := range rows {
		if err := batch.Append(r.ImportDate, r.Computer, r.OriginalFile, r.ArchiveName, r.ID, r.Data); err != nil {
			return fmt.Errorf("clickhouse: append row to %s: %w", table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse: send batch to %s: %w", table, err)
	}
	return nil
}

// Close closes the underlying connection.
func (b *ClickHouseBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.conn.Close()
}
