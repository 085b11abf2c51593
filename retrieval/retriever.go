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

package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/legisearch/ai"
	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

const embeddingTableSuffix = "_embedding"

// Store is the slice of the storage backend the retriever reads from.
type Store interface {
	storage.SchemaRepository
	storage.BillRepository
	storage.ValueRepository
}

// Config tunes retrieval thresholds and result sizes.
type Config struct {
	// SchemaTopK is the default number of schema candidates returned.
	SchemaTopK int
	// SchemaMinSimilarity filters DDL chunk hits by cosine similarity.
	SchemaMinSimilarity float32
	// ValueTopK is the number of example column values attached per
	// candidate and returned from value lookups.
	ValueTopK int
	// ValueMinSimilarity filters value-row hits by cosine similarity.
	ValueMinSimilarity float32
	// BillTopK is the number of similar bills returned.
	BillTopK int
	// BillMaxDistance filters bill hits by cosine distance.
	BillMaxDistance float32
}

// DefaultConfig returns the retrieval defaults.
func DefaultConfig() *Config {
	return &Config{
		SchemaTopK:          2,
		SchemaMinSimilarity: 0.15,
		ValueTopK:           3,
		ValueMinSimilarity:  0.5,
		BillTopK:            10,
		BillMaxDistance:     0.8,
	}
}

// Retriever serves vector search over bill embeddings, registered
// table DDL, and imported value rows.
type Retriever struct {
	store    Store
	embedder ai.Embedder
	config   *Config
	logger   *slog.Logger
}

// NewRetriever creates a retriever over store using embedder for query
// vectors. A nil config selects DefaultConfig.
func NewRetriever(store Store, embedder ai.Embedder, config *Config) (*Retriever, error) {
	if store == nil {
		return nil, ErrBackendRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		config:   config,
		logger:   slog.Default().With("component", "retrieval"),
	}, nil
}

// SchemaCandidates returns up to topK registered table schemas whose
// DDL is semantically close to userInput, each annotated with example
// column values close to the same query. topK <= 0 selects the
// configured default.
func (r *Retriever) SchemaCandidates(ctx context.Context, userInput string, topK int) ([]*core.SchemaCandidate, error) {
	if topK <= 0 {
		topK = r.config.SchemaTopK
	}
	vector, err := r.embedder.EmbedText(ctx, userInput)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	docs, err := r.store.SearchChunks(ctx, vector, r.config.SchemaMinSimilarity, topK)
	if err != nil {
		return nil, fmt.Errorf("searching schema chunks: %w", err)
	}

	candidates := make([]*core.SchemaCandidate, 0, len(docs))
	for _, doc := range docs {
		candidate := &core.SchemaCandidate{DDL: doc.TableDDL}
		values, err := r.valuesForTable(ctx, doc.TableName, vector)
		if err != nil {
			// A candidate without example values is still useful.
			r.logger.Warn("value candidate lookup failed", "table", doc.TableName, "err", err)
		} else {
			candidate.PossibleColumnValues = values
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// ValueLookup returns raw row documents from the table described by
// ddl that are semantically close to text.
func (r *Retriever) ValueLookup(ctx context.Context, ddl, text string) ([]string, error) {
	table, err := ExtractTableName(ddl)
	if err != nil {
		return nil, err
	}
	vector, err := r.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return r.valuesForTable(ctx, table, vector)
}

func (r *Retriever) valuesForTable(ctx context.Context, table string, vector []float32) ([]string, error) {
	records, err := r.store.SearchValues(ctx, table+embeddingTableSuffix, vector, r.config.ValueMinSimilarity, r.config.ValueTopK)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(records))
	for _, record := range records {
		values = append(values, record.JSONString)
	}
	return values, nil
}

// SimilarBills returns bills whose embeddings are close to text,
// ordered best match first.
func (r *Retriever) SimilarBills(ctx context.Context, text string) ([]*core.SimilarBill, error) {
	vector, err := r.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return r.store.SimilarByVector(ctx, vector, r.config.BillMaxDistance, r.config.BillTopK)
}

// SimilarToBill returns bills close to billID's own embedding,
// excluding billID itself.
func (r *Retriever) SimilarToBill(ctx context.Context, billID int64) ([]*core.SimilarBill, error) {
	return r.store.SimilarToBill(ctx, billID, r.config.BillMaxDistance, r.config.BillTopK)
}

// BillsByCategory returns bills tagged with the given inferred
// category.
func (r *Retriever) BillsByCategory(ctx context.Context, category string) ([]*core.Bill, error) {
	return r.store.ByCategory(ctx, category, r.config.BillTopK)
}
