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
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/legisearch/ai/mock"
	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

// fakeBillRepo mimics the claim semantics of the real backend: a batch
// is claimed under a lock, embedded, and either written back or
// returned to the pool on error.
type fakeBillRepo struct {
	storage.BillRepository

	mu        sync.Mutex
	pending   map[int64]*core.Bill
	embedded  map[int64][]float32
	indexUp   bool
	dropCalls int
	buildErr  error
	buildTry  int
}

func newFakeBillRepo(n int) *fakeBillRepo {
	repo := &fakeBillRepo{
		pending:  map[int64]*core.Bill{},
		embedded: map[int64][]float32{},
		indexUp:  true,
	}
	for i := 1; i <= n; i++ {
		repo.pending[int64(i)] = &core.Bill{
			BillID: int64(i),
			Title:  fmt.Sprintf("Bill %d", i),
		}
	}
	return repo
}

func (f *fakeBillRepo) CountMissingEmbeddings(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.pending)), nil
}

func (f *fakeBillRepo) BackfillBatch(ctx context.Context, limit int, embed storage.EmbedBillsFunc) (int, error) {
	// Claim outside the embed call so concurrent claimers see a
	// consistent pool, like row locks do.
	f.mu.Lock()
	claimed := make([]*core.Bill, 0, limit)
	for id, bill := range f.pending {
		if len(claimed) == limit {
			break
		}
		claimed = append(claimed, bill)
		delete(f.pending, id)
	}
	f.mu.Unlock()

	if len(claimed) == 0 {
		return 0, nil
	}
	if err := embed(ctx, claimed); err != nil {
		// Rollback: rows return to the pool.
		f.mu.Lock()
		for _, bill := range claimed {
			f.pending[bill.BillID] = bill
		}
		f.mu.Unlock()
		return 0, err
	}
	f.mu.Lock()
	for _, bill := range claimed {
		f.embedded[bill.BillID] = bill.Embedding
	}
	f.mu.Unlock()
	return len(claimed), nil
}

func (f *fakeBillRepo) DropSearchIndex(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexUp = false
	f.dropCalls++
	return nil
}

func (f *fakeBillRepo) CreateSearchIndex(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildTry++
	if f.buildErr != nil {
		return f.buildErr
	}
	f.indexUp = true
	return nil
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

func newTestProcessor(t *testing.T, repo storage.BillRepository, cfg *Config) *Processor {
	t.Helper()
	if cfg == nil {
		cfg = &Config{BatchSize: 7, PoolSize: 4, ReportInterval: 100, MaxRetries: 2, RetryDelay: time.Millisecond}
	}
	proc, err := NewProcessor(repo, mock.NewMockEmbedder(), cfg, io.Discard)
	require.NoError(t, err)
	return proc
}

func TestProcessorEmbedsEverything(t *testing.T) {
	repo := newFakeBillRepo(23)
	proc := newTestProcessor(t, repo, nil)

	require.NoError(t, proc.Run(context.Background()))
	assert.Empty(t, repo.pending)
	assert.Len(t, repo.embedded, 23)
	for id, vector := range repo.embedded {
		require.NotEmpty(t, vector, "bill %d has no vector", id)
		assert.InDelta(t, 1.0, magnitude(vector), 1e-5, "bill %d vector not unit length", id)
	}
	assert.Equal(t, 1, repo.dropCalls, "index dropped once before the run")
	assert.True(t, repo.indexUp, "index rebuilt after the run")
}

func TestProcessorNoBacklogLeavesIndexAlone(t *testing.T) {
	repo := newFakeBillRepo(0)
	proc := newTestProcessor(t, repo, nil)
	require.NoError(t, proc.Run(context.Background()))
	assert.Zero(t, repo.dropCalls)
	assert.True(t, repo.indexUp)
}

func TestProcessorExactlyOneClaim(t *testing.T) {
	repo := newFakeBillRepo(200)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		proc := newTestProcessor(t, repo, &Config{
			BatchSize: 9, PoolSize: 2, ReportInterval: 1000, MaxRetries: 1, RetryDelay: time.Millisecond,
		})
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = proc.Run(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, repo.embedded, 200, "every bill embedded exactly once")
	assert.Empty(t, repo.pending)
}

func TestProcessorIndexRebuildFailure(t *testing.T) {
	repo := newFakeBillRepo(5)
	repo.buildErr = errors.New("out of memory")
	proc := newTestProcessor(t, repo, nil)

	err := proc.Run(context.Background())
	assert.ErrorIs(t, err, ErrIndexRebuild)
	assert.Len(t, repo.embedded, 5, "embeddings stay committed despite rebuild failure")
	assert.Equal(t, 2, repo.buildTry, "rebuild retried")
}

func TestProcessorEmbedderFailurePropagates(t *testing.T) {
	repo := newFakeBillRepo(5)
	embedder := mock.NewMockEmbedder()
	boom := errors.New("model offline")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}
	proc, err := NewProcessor(repo, embedder, &Config{
		BatchSize: 2, PoolSize: 2, ReportInterval: 100, MaxRetries: 1, RetryDelay: time.Millisecond,
	}, io.Discard)
	require.NoError(t, err)

	err = proc.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, repo.embedded)
	assert.Len(t, repo.pending, 5, "failed batch rows remain claimable")
}

// fakeValueRepo mirrors fakeBillRepo for value rows across two tables.
type fakeValueRepo struct {
	storage.ValueRepository

	mu       sync.Mutex
	pending  map[string]map[int64]*core.ValueRecord
	embedded map[string]int
	vectors  [][]float32
	indexes  map[string]bool
}

func newFakeValueRepo(tables map[string]int) *fakeValueRepo {
	repo := &fakeValueRepo{
		pending:  map[string]map[int64]*core.ValueRecord{},
		embedded: map[string]int{},
		indexes:  map[string]bool{},
	}
	for table, n := range tables {
		rows := map[int64]*core.ValueRecord{}
		for i := 1; i <= n; i++ {
			rows[int64(i)] = &core.ValueRecord{
				PID:        int64(i),
				JSONString: fmt.Sprintf(`{"row": %d}`, i),
			}
		}
		repo.pending[table] = rows
		repo.indexes[table] = true
	}
	return repo
}

func (f *fakeValueRepo) EmbeddingTables(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tables := make([]string, 0, len(f.pending))
	for table := range f.pending {
		tables = append(tables, table)
	}
	return tables, nil
}

func (f *fakeValueRepo) BackfillValueBatch(ctx context.Context, table string, limit int, embed storage.EmbedValuesFunc) (int, error) {
	f.mu.Lock()
	rows := f.pending[table]
	claimed := make([]*core.ValueRecord, 0, limit)
	for pid, row := range rows {
		if len(claimed) == limit {
			break
		}
		claimed = append(claimed, row)
		delete(rows, pid)
	}
	f.mu.Unlock()

	if len(claimed) == 0 {
		return 0, nil
	}
	if err := embed(ctx, claimed); err != nil {
		f.mu.Lock()
		for _, row := range claimed {
			rows[row.PID] = row
		}
		f.mu.Unlock()
		return 0, err
	}
	f.mu.Lock()
	f.embedded[table] += len(claimed)
	for _, row := range claimed {
		f.vectors = append(f.vectors, row.Embedding)
	}
	f.mu.Unlock()
	return len(claimed), nil
}

func (f *fakeValueRepo) DropValueIndex(ctx context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes[table] = false
	return nil
}

func (f *fakeValueRepo) CreateValueIndex(ctx context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes[table] = true
	return nil
}

func TestValueProcessorBackfillsAllTables(t *testing.T) {
	repo := newFakeValueRepo(map[string]int{
		"voter_registration_embedding": 15,
		"voter_history_embedding":      4,
	})
	proc, err := NewValueProcessor(repo, mock.NewMockEmbedder(), &Config{
		BatchSize: 6, PoolSize: 2, ReportInterval: 100, MaxRetries: 1, RetryDelay: time.Millisecond,
	}, io.Discard)
	require.NoError(t, err)

	require.NoError(t, proc.Run(context.Background()))
	assert.Equal(t, 15, repo.embedded["voter_registration_embedding"])
	assert.Equal(t, 4, repo.embedded["voter_history_embedding"])
	require.Len(t, repo.vectors, 19)
	for i, vector := range repo.vectors {
		assert.InDelta(t, 1.0, magnitude(vector), 1e-5, "row %d vector not unit length", i)
	}
	for table, up := range repo.indexes {
		assert.True(t, up, "index on %s rebuilt", table)
	}
}
