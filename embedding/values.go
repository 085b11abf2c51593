// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/legisearch/ai"
	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

// DefaultValueConfig returns value-row backfill defaults. Value rows
// are short JSON documents, so batches are much larger than bill
// batches.
func DefaultValueConfig() *Config {
	return &Config{
		BatchSize:      2000,
		ReportInterval: 10000,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// ValueProcessor backfills row embeddings for every value side table.
// Rows are embedded from their JSON document form; long documents are
// chunk-averaged by the embedder.
type ValueProcessor struct {
	values   storage.ValueRepository
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewValueProcessor creates a value embedding processor.
func NewValueProcessor(values storage.ValueRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*ValueProcessor, error) {
	if values == nil {
		return nil, ErrBackendRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultValueConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &ValueProcessor{
		values:   values,
		embedder: embedder,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "embedding"),
	}, nil
}

// Run backfills every embedding table in turn. Each table's ANN index
// is dropped for the duration of its backfill and rebuilt afterwards.
func (p *ValueProcessor) Run(ctx context.Context) error {
	tables, err := p.values.EmbeddingTables(ctx)
	if err != nil {
		return fmt.Errorf("listing embedding tables: %w", err)
	}
	if len(tables) == 0 {
		fmt.Fprintf(p.progress, "no embedding tables found\n")
		return nil
	}
	for _, table := range tables {
		if err := p.runTable(ctx, table); err != nil {
			return fmt.Errorf("backfilling %s: %w", table, err)
		}
	}
	return nil
}

func (p *ValueProcessor) runTable(ctx context.Context, table string) error {
	fmt.Fprintf(p.progress, "embedding rows in %s (batch size: %d)\n", table, p.config.BatchSize)

	if err := p.values.DropValueIndex(ctx, table); err != nil {
		return err
	}

	pool, err := ants.NewPool(p.config.poolSize())
	if err != nil {
		return err
	}
	defer pool.Release()

	processed := 0
	for {
		n, err := p.values.BackfillValueBatch(ctx, table, p.config.BatchSize, func(ctx context.Context, records []*core.ValueRecord) error {
			return p.embedRecords(ctx, pool, records)
		})
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		processed += n
		if processed%p.config.ReportInterval < n {
			fmt.Fprintf(p.progress, "progress: %d rows in %s\n", processed, table)
		}
	}
	fmt.Fprintf(p.progress, "done: %d rows in %s\n", processed, table)

	err = RetryWithBackoff(ctx, func() error {
		return p.values.CreateValueIndex(ctx, table)
	}, p.config.MaxRetries, p.config.RetryDelay)
	if err != nil {
		p.logger.Error("value index rebuild failed", "table", table, "err", err)
		return fmt.Errorf("%w: %w", ErrIndexRebuild, err)
	}
	return nil
}

func (p *ValueProcessor) embedRecords(ctx context.Context, pool *ants.Pool, records []*core.ValueRecord) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, record := range records {
		record := record
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			vector, err := p.embedder.EmbedText(ctx, record.JSONString)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding row %d: %w", record.PID, err)
				}
				mu.Unlock()
				return
			}
			record.Embedding = NormalizeVector(vector)
		}); err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}
	wg.Wait()
	return firstErr
}
