// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kraklabs/sift/pkg/config"
	"github.com/kraklabs/sift/pkg/sink"
	"github.com/kraklabs/sift/pkg/storage"
	"github.com/kraklabs/sift/pkg/topic"
)

// SinkBuilder turns the sink configuration for a run into concrete
// sink.Fanout instances, one per (archive, topic) pair. Store-sink backends
// are shared across every topic and archive that targets the same server;
// everything else is built fresh per fanout.
type SinkBuilder struct {
	ctx           context.Context
	clientContext string
	specs         []config.SinkSpec
	logger        *slog.Logger

	mu       sync.Mutex
	backends map[string]storage.Backend
}

// NewSinkBuilder prepares a builder for the given sink configuration. ctx
// is threaded into store sinks, whose writer task runs for the life of the
// run rather than any single archive.
func NewSinkBuilder(ctx context.Context, clientContext string, specs []config.SinkSpec, logger *slog.Logger) *SinkBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SinkBuilder{
		ctx:           ctx,
		clientContext: clientContext,
		specs:         specs,
		logger:        logger,
		backends:      make(map[string]storage.Backend),
	}
}

// Build constructs the fan-out for one topic within one archive, containing
// one sink instance per configured output spec.
func (b *SinkBuilder) Build(archiveName, topicName string) (*sink.Fanout, error) {
	qualified := topic.QualifiedName(b.clientContext, topicName)
	sinks := make([]sink.Sink, 0, len(b.specs))

	for _, spec := range b.specs {
		switch spec.Kind {
		case config.SinkFile:
			fs, err := sink.NewFileSink(spec.Folder, archiveName, b.clientContext, topicName)
			if err != nil {
				return nil, fmt.Errorf("pipeline: build file sink for topic %q: %w", topicName, err)
			}
			sinks = append(sinks, fs)
		case config.SinkBus:
			brokers, err := brokersFromParams(spec.Params)
			if err != nil {
				return nil, err
			}
			bs, err := sink.NewBusSink(brokers, qualified)
			if err != nil {
				return nil, fmt.Errorf("pipeline: build bus sink for topic %q: %w", qualified, err)
			}
			sinks = append(sinks, bs)
		case config.SinkStore:
			backend, err := b.backendFor(spec)
			if err != nil {
				return nil, err
			}
			ss, err := sink.NewStoreSink(b.ctx, backend, qualified)
			if err != nil {
				return nil, fmt.Errorf("pipeline: build store sink for topic %q: %w", qualified, err)
			}
			sinks = append(sinks, ss)
		default:
			return nil, fmt.Errorf("pipeline: unknown sink kind %q", spec.Kind)
		}
	}

	return sink.NewFanout(b.logger, sinks...), nil
}

func (b *SinkBuilder) backendFor(spec config.SinkSpec) (storage.Backend, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if be, ok := b.backends[spec.Server]; ok {
		return be, nil
	}
	be, err := storage.NewClickHouseBackend(storage.ClickHouseConfig{
		Server:   spec.Server,
		Login:    spec.Login,
		Password: spec.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: connect store backend %s: %w", spec.Server, err)
	}
	b.backends[spec.Server] = be
	return be, nil
}

// Close releases every store backend this builder opened.
func (b *SinkBuilder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, be := range b.backends {
		if err := be.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func brokersFromParams(params map[string]string) ([]string, error) {
	raw, ok := params["brokers"]
	if !ok || raw == "" {
		return nil, fmt.Errorf("pipeline: bus sink params.brokers is required")
	}
	return strings.Split(raw, ","), nil
}
