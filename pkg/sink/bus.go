// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package sink

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"github.com/kraklabs/sift/pkg/envelope"
)

// busSubmitYield is how long Write backs off when the producer's internal
// queue is full before retrying the submit.
const busSubmitYield = 10 * time.Millisecond

// busFlushTimeout bounds how long Flush waits for outstanding deliveries to
// drain before giving up.
const busFlushTimeout = 30 * time.Second

// BusSink is a keyed asynchronous producer over an existing bus topic.
// Topic creation is never attempted; the topic must already exist.
type BusSink struct {
	producer sarama.AsyncProducer
	topic    string

	pending     atomic.Int64
	deliveryErr atomic.Bool
	errMu       sync.Mutex
	lastErr     error

	doneCh chan struct{}
}

// NewBusSink opens an async producer against brokers for an existing topic.
func NewBusSink(brokers []string, topicName string) (*BusSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Metadata.AllowAutoTopicCreation = false

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("bus sink: new producer: %w", err)
	}

	b := &BusSink{producer: producer, topic: topicName, doneCh: make(chan struct{})}
	go b.drain()
	return b, nil
}

// drain consumes delivery acknowledgments. The first failed acknowledgment
// flips the shared delivery-error flag that every subsequent Write checks.
func (b *BusSink) drain() {
	defer close(b.doneCh)
	successes := b.producer.Successes()
	errs := b.producer.Errors()
	for successes != nil || errs != nil {
		select {
		case _, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			b.pending.Add(-1)
		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			b.pending.Add(-1)
			b.errMu.Lock()
			if b.lastErr == nil {
				b.lastErr = perr.Err
			}
			b.errMu.Unlock()
			b.deliveryErr.Store(true)
		}
	}
}

func (b *BusSink) deliveryError() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.lastErr
}

// Write submits t keyed by its routing key. Submission busy-yields for
// 10ms and retries while the producer's queue is full.
func (b *BusSink) Write(t *envelope.Tuple) error {
	if b.deliveryErr.Load() {
		return fmt.Errorf("bus sink: prior delivery failed: %w", b.deliveryError())
	}

	line, err := t.ToJSONString()
	if err != nil {
		return fmt.Errorf("bus sink: serialize: %w", err)
	}
	key := t.Key()
	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.ByteEncoder(key[:]),
		Value: sarama.StringEncoder(line),
	}

	b.pending.Add(1)
	for {
		select {
		case b.producer.Input() <- msg:
			return nil
		default:
			time.Sleep(busSubmitYield)
			if b.deliveryErr.Load() {
				b.pending.Add(-1)
				return fmt.Errorf("bus sink: prior delivery failed: %w", b.deliveryError())
			}
		}
	}
}

// Flush waits for outstanding deliveries to drain, bounded by a 30-second
// timeout.
func (b *BusSink) Flush() error {
	deadline := time.Now().Add(busFlushTimeout)
	for b.pending.Load() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("bus sink: flush timed out after %s with %d message(s) outstanding", busFlushTimeout, b.pending.Load())
		}
		time.Sleep(busSubmitYield)
	}
	if b.deliveryErr.Load() {
		return fmt.Errorf("bus sink: delivery error: %w", b.deliveryError())
	}
	return nil
}

// Close closes the producer and waits for the drain goroutine to exit.
func (b *BusSink) Close() error {
	err := b.producer.Close()
	<-b.doneCh
	return err
}
