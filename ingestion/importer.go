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

package ingestion

import (
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/legisearch/ai"
	"github.com/poiesic/legisearch/storage"
)

// Importer walks a legislative corpus tree and loads sponsors, bills
// and roll-call votes into storage, tracking per-file progress so
// interrupted runs resume where they left off.
type Importer struct {
	backend    storage.Backend
	classifier ai.Classifier
	linkPool   *ants.Pool
	logger     *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithPoolSize sets the worker pool size used for per-row dependent
// inserts (sponsor links, individual votes). Default is
// runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(imp *Importer) error {
		if size < 1 {
			size = 1
		}
		if imp.linkPool != nil {
			imp.linkPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		imp.linkPool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(imp *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		imp.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewImporter creates a corpus importer. The classifier populates
// inferred bill categories during import.
func NewImporter(backend storage.Backend, classifier ai.Classifier, opts ...Option) (*Importer, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if classifier == nil {
		return nil, ErrProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	imp := &Importer{
		backend:    backend,
		classifier: classifier,
		linkPool:   pool,
		logger:     slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(imp); err != nil {
			imp.Release()
			return nil, err
		}
	}
	return imp, nil
}

// Release releases the importer's worker pool. The importer must not be
// used afterwards.
func (imp *Importer) Release() {
	if imp.linkPool != nil {
		imp.linkPool.Release()
	}
}
