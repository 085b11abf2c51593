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
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/legisearch/ai"
	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

// Config holds configuration for bulk embedding runs.
type Config struct {
	// BatchSize is the number of rows claimed per transaction.
	BatchSize int

	// PoolSize bounds the parallel embedding calls within one claimed
	// batch. Zero means runtime.NumCPU() / 2, minimum 1.
	PoolSize int

	// ReportInterval is how often to report progress (number of rows).
	ReportInterval int

	// MaxRetries is the maximum number of attempts for the index
	// rebuild after the backfill.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns bill-backfill defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

func (c *Config) poolSize() int {
	if c.PoolSize > 0 {
		return c.PoolSize
	}
	size := runtime.NumCPU() / 2
	if size < 1 {
		size = 1
	}
	return size
}

// Processor backfills missing bill embeddings. The ANN index is dropped
// before the run and rebuilt afterwards so bulk writes skip per-row
// index maintenance. Multiple processors can run concurrently against
// the same database; the skip-locked claim keeps them disjoint.
type Processor struct {
	bills    storage.BillRepository
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewProcessor creates a bill embedding processor.
// progress: where to write progress output (typically os.Stderr).
func NewProcessor(bills storage.BillRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Processor, error) {
	if bills == nil {
		return nil, ErrBackendRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Processor{
		bills:    bills,
		embedder: embedder,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "embedding"),
	}, nil
}

// Run embeds every bill with no vector, batch by batch, until none
// remain, then rebuilds the search index. Embeddings stay committed
// even if the rebuild ultimately fails.
func (p *Processor) Run(ctx context.Context) error {
	total, err := p.bills.CountMissingEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("counting backlog: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(p.progress, "no bills need embedding\n")
		return nil
	}
	fmt.Fprintf(p.progress, "embedding %d bills (batch size: %d)\n", total, p.config.BatchSize)

	if err := p.bills.DropSearchIndex(ctx); err != nil {
		return fmt.Errorf("dropping search index: %w", err)
	}

	pool, err := ants.NewPool(p.config.poolSize())
	if err != nil {
		return err
	}
	defer pool.Release()

	reporter := NewReporter(p.progress, int(total), p.config.ReportInterval)
	reporter.Start()

	for {
		processed, err := p.bills.BackfillBatch(ctx, p.config.BatchSize, func(ctx context.Context, bills []*core.Bill) error {
			return p.embedBatch(ctx, pool, bills)
		})
		if err != nil {
			return err
		}
		if processed == 0 {
			break
		}
		reporter.Increment(processed)
	}
	reporter.Finish()

	return p.rebuildIndex(ctx)
}

// embedBatch embeds the claimed bills in parallel through the pool.
// The first error wins; remaining tasks still run to completion before
// it is returned, failing the whole batch's transaction.
func (p *Processor) embedBatch(ctx context.Context, pool *ants.Pool, bills []*core.Bill) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, bill := range bills {
		bill := bill
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			vector, err := p.embedder.EmbedText(ctx, bill.Title+" "+bill.Description)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding bill %d: %w", bill.BillID, err)
				}
				mu.Unlock()
				return
			}
			// Unit-length vectors make stored dot products equal to
			// cosine similarity.
			bill.Embedding = NormalizeVector(vector)
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

// rebuildIndex retries the index build with backoff. Failure is
// reported as ErrIndexRebuild; the caller can re-run or rebuild
// manually, no data is lost.
func (p *Processor) rebuildIndex(ctx context.Context) error {
	err := RetryWithBackoff(ctx, func() error {
		return p.bills.CreateSearchIndex(ctx)
	}, p.config.MaxRetries, p.config.RetryDelay)
	if err != nil {
		p.logger.Error("search index rebuild failed", "err", err)
		return fmt.Errorf("%w: %w", ErrIndexRebuild, err)
	}
	return nil
}
