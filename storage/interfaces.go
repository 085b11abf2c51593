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

package storage

import (
	"context"

	"github.com/poiesic/legisearch/core"
)

// TrackerRepository records per-file ingestion progress. Files are keyed
// by absolute path; a completed file is never reprocessed.
type TrackerRepository interface {
	// IsCompleted reports whether the file at path has already been
	// processed to completion.
	IsCompleted(ctx context.Context, path string) (bool, error)

	// UpsertStatus inserts or updates the tracking row for path.
	// Region and session describe where in the corpus tree the file
	// lives. Status must be a valid core.Status.
	UpsertStatus(ctx context.Context, path string, category core.FileCategory, region, session string, status core.Status) error
}

// SponsorRepository stores legislators. Upserts are keyed by the
// source-assigned sponsor ID so re-imports refresh names, parties and
// districts in place.
type SponsorRepository interface {
	// UpsertSponsor inserts or updates a sponsor by its external ID.
	UpsertSponsor(ctx context.Context, sponsor *core.Sponsor) error
}

// EmbedBillsFunc embeds a claimed batch of bills in place, populating
// each bill's Embedding field. It runs inside the claiming transaction's
// lifetime but must not touch the database itself.
type EmbedBillsFunc func(ctx context.Context, bills []*core.Bill) error

// BillRepository stores bills, their sponsor links, and their
// embeddings, and serves vector and category search over them.
type BillRepository interface {
	// UpsertBill inserts or updates a bill by its external ID. The
	// embedding column is cleared on update so changed text is
	// re-embedded by the next backfill.
	UpsertBill(ctx context.Context, bill *core.Bill) error

	// LinkSponsor associates a sponsor with a bill. Returns
	// ErrForeignKey when either side does not exist.
	LinkSponsor(ctx context.Context, billID, sponsorID int64) error

	// CountMissingEmbeddings returns the number of bills with no
	// embedding.
	CountMissingEmbeddings(ctx context.Context) (int64, error)

	// BackfillBatch claims up to limit bills with no embedding using
	// FOR UPDATE SKIP LOCKED, invokes embed to populate their vectors,
	// writes them back in a single batched update, and commits.
	// Returns the number of bills processed; zero means no work
	// remains. Concurrent callers never claim the same bill.
	BackfillBatch(ctx context.Context, limit int, embed EmbedBillsFunc) (int, error)

	// DropSearchIndex removes the ANN index on the bill embedding
	// column if it exists.
	DropSearchIndex(ctx context.Context) error

	// CreateSearchIndex (re)builds the ANN index on the bill embedding
	// column.
	CreateSearchIndex(ctx context.Context) error

	// SimilarByVector returns bills ordered by cosine distance to
	// vector, keeping only those with distance below maxDistance.
	SimilarByVector(ctx context.Context, vector []float32, maxDistance float32, limit int) ([]*core.SimilarBill, error)

	// SimilarToBill is SimilarByVector probed with billID's own
	// embedding, excluding billID from the results. Returns
	// ErrNotFound if the bill does not exist or has no embedding.
	SimilarToBill(ctx context.Context, billID int64, maxDistance float32, limit int) ([]*core.SimilarBill, error)

	// ByCategory returns bills whose inferred categories contain
	// category.
	ByCategory(ctx context.Context, category string, limit int) ([]*core.Bill, error)
}

// RollCallRepository stores roll calls and their per-legislator votes.
type RollCallRepository interface {
	// UpsertRollCall inserts or updates a roll call by its external
	// ID. Returns ErrForeignKey when the referenced bill does not
	// exist.
	UpsertRollCall(ctx context.Context, rollCall *core.RollCall) error

	// UpsertVote inserts or updates a single legislator's vote on a
	// roll call. Returns ErrForeignKey when the roll call or sponsor
	// does not exist.
	UpsertVote(ctx context.Context, vote *core.RollCallVote) error
}

// SchemaRepository stores value-table DDL documents and their chunk
// embeddings, and serves similarity search over the chunks.
type SchemaRepository interface {
	// UpsertSchemaDocument inserts or replaces the DDL document for a
	// table together with its chunk embeddings. Existing chunks for
	// the same table are removed first.
	UpsertSchemaDocument(ctx context.Context, doc *core.SchemaDocument, chunks [][]float32) error

	// SearchChunks returns DDL documents whose chunks are similar to
	// vector (cosine similarity above minSimilarity), de-duplicated by
	// parent document and ordered by best chunk first.
	SearchChunks(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SchemaDocument, error)

	// TableNames returns the names of all registered value tables.
	TableNames(ctx context.Context) ([]string, error)
}

// EmbedValuesFunc embeds a claimed batch of value records in place.
type EmbedValuesFunc func(ctx context.Context, records []*core.ValueRecord) error

// ValueRepository manages dynamically created value tables and their
// row-embedding side tables.
type ValueRepository interface {
	// CreateValueTable creates the value table described by info plus
	// its embedding side table, dropping any previous versions.
	CreateValueTable(ctx context.Context, info *core.TableInfo) error

	// DropValueTables drops every value table, its embedding side
	// table, and the registered DDL documents.
	DropValueTables(ctx context.Context) error

	// InsertRows bulk-inserts rows into the named value table and
	// mirrors each row as a JSON document into its embedding side
	// table. Columns orders the values within each row.
	InsertRows(ctx context.Context, tableName string, columns []string, rows [][]string) error

	// EmbeddingTables returns the names of all row-embedding side
	// tables.
	EmbeddingTables(ctx context.Context) ([]string, error)

	// BackfillValueBatch claims up to limit unembedded rows from the
	// named embedding table using FOR UPDATE SKIP LOCKED, invokes
	// embed, writes the vectors back, and commits. Returns the number
	// of rows processed.
	BackfillValueBatch(ctx context.Context, tableName string, limit int, embed EmbedValuesFunc) (int, error)

	// DropValueIndex removes the ANN index on the named embedding
	// table if it exists.
	DropValueIndex(ctx context.Context, tableName string) error

	// CreateValueIndex (re)builds the ANN index on the named embedding
	// table.
	CreateValueIndex(ctx context.Context, tableName string) error

	// SearchValues returns rows from the named embedding table with
	// cosine similarity to vector above minSimilarity.
	SearchValues(ctx context.Context, tableName string, vector []float32, minSimilarity float32, limit int) ([]*core.ValueRecord, error)
}

// Executor runs a single already-validated SQL statement and returns
// its rows serialized as a JSON array.
type Executor interface {
	QueryJSON(ctx context.Context, statement string) (string, error)
}

// Backend combines every repository served by one storage
// implementation. Implementations must be safe for concurrent use.
type Backend interface {
	TrackerRepository
	SponsorRepository
	BillRepository
	RollCallRepository
	SchemaRepository
	ValueRepository
	Executor

	// InitSchema creates the fixed tables and indexes if they do not
	// exist.
	InitSchema(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
