// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package sink

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kraklabs/sift/pkg/envelope"
	"github.com/kraklabs/sift/pkg/storage"
)

// storeQueueCapacity bounds the synchronous submission queue the store sink
// exposes to the parse-stage worker that owns it.
const storeQueueCapacity = 10_000

// storeMaxBatchRows and storeMaxBatchBytes bound one committed batch,
// whichever limit is hit first.
const (
	storeMaxBatchRows  = 10_000
	storeMaxBatchBytes = 10 << 20 // 10 MiB
)

// storeCommitInterval is how often the writer task flushes a partial batch
// even if neither size limit has been reached.
const storeCommitInterval = 2 * time.Second

type storeMsg struct {
	row   *storage.Row
	flush chan error
}

// StoreSink writes batched rows into a columnar analytic store backend. It
// owns a dedicated goroutine that drains a bounded queue and commits batches
// periodically, exposing a synchronous Write/Flush interface to its caller.
type StoreSink struct {
	table   string
	backend storage.Backend

	queue chan storeMsg
	done  chan struct{}

	insertErr atomic.Bool
	lastErr   atomic.Value // error
}

// NewStoreSink starts the writer task for table, ensuring it exists first.
func NewStoreSink(ctx context.Context, backend storage.Backend, table string) (*StoreSink, error) {
	if err := backend.EnsureTable(ctx, table); err != nil {
		return nil, fmt.Errorf("store sink: ensure table %s: %w", table, err)
	}
	s := &StoreSink{
		table:   table,
		backend: backend,
		queue:   make(chan storeMsg, storeQueueCapacity),
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

// run is the dedicated writer task: it batches rows up to the size limits
// or the commit interval, whichever comes first, and commits them in one
// InsertRows call.
func (s *StoreSink) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(storeCommitInterval)
	defer ticker.Stop()

	var batch []storage.Row
	var batchBytes int

	commit := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.backend.InsertRows(ctx, s.table, batch); err != nil {
			s.setErr(fmt.Errorf("store sink: insert into %s: %w", s.table, err))
		}
		batch = batch[:0]
		batchBytes = 0
	}

	for {
		select {
		case msg, ok := <-s.queue:
			if !ok {
				commit()
				return
			}
			if msg.flush != nil {
				commit()
				msg.flush <- s.currentErr()
				continue
			}
			batch = append(batch, *msg.row)
			batchBytes += rowSize(msg.row)
			if len(batch) >= storeMaxBatchRows || batchBytes >= storeMaxBatchBytes {
				commit()
			}
		case <-ticker.C:
			commit()
		case <-ctx.Done():
			commit()
			return
		}
	}
}

func rowSize(r *storage.Row) int {
	return len(r.ImportDate) + len(r.Computer) + len(r.OriginalFile) + len(r.ArchiveName) + len(r.ID) + len(r.Data)
}

func (s *StoreSink) setErr(err error) {
	if s.insertErr.Load() {
		return
	}
	s.lastErr.Store(err)
	s.insertErr.Store(true)
}

func (s *StoreSink) currentErr() error {
	v := s.lastErr.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

// Write submits t for batched insertion. It fails fast if a prior
// asynchronous insert already failed, and blocks when the submission queue
// is full.
func (s *StoreSink) Write(t *envelope.Tuple) error {
	if s.insertErr.Load() {
		return fmt.Errorf("store sink: prior insert failed: %w", s.currentErr())
	}

	id, err := t.ID()
	if err != nil {
		return fmt.Errorf("store sink: %w", err)
	}
	data := t.Data()
	dataJSON := "{}"
	if data != nil {
		b, err := data.MarshalJSON()
		if err != nil {
			return fmt.Errorf("store sink: serialize data: %w", err)
		}
		dataJSON = string(b)
	}
	row := storage.Row{
		ImportDate:   envelope.FormatDate(t.ImportDate()),
		Computer:     t.Computer(),
		OriginalFile: t.OriginalFile(),
		ArchiveName:  t.ArchiveName(),
		ID:           id,
		Data:         dataJSON,
	}

	s.queue <- storeMsg{row: &row}
	return nil
}

// Flush drains outstanding batches and returns the first insert error
// observed, if any.
func (s *StoreSink) Flush() error {
	reply := make(chan error, 1)
	s.queue <- storeMsg{flush: reply}
	return <-reply
}

// Close stops the writer task after its queued work drains.
func (s *StoreSink) Close() error {
	err := s.Flush()
	close(s.queue)
	<-s.done
	return err
}
