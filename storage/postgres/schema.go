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

package postgres

import (
	"context"
	"fmt"
)

const (
	// BillVectorDim is the dimensionality of bill embeddings.
	BillVectorDim = 384

	// ValueVectorDim is the dimensionality of DDL and value-row
	// embeddings.
	ValueVectorDim = 1536

	// HNSW build parameters. Low m keeps index builds cheap on
	// modest hardware at some recall cost.
	hnswM              = 8
	hnswEFConstruction = 32

	// indexBuildWorkMem is the session maintenance_work_mem used while
	// building ANN indexes.
	indexBuildWorkMem = "512MB"

	billIndexName = "bills_embedding_hnsw_idx"
)

// fixedTableDDL holds the CREATE TABLE statements for all fixed tables,
// in dependency order. Each entry is a format string taking the schema
// name once per table reference.
var fixedTableDDL = []string{
	`CREATE TABLE IF NOT EXISTS %[1]s.bills (
		bill_id BIGINT PRIMARY KEY,
		bill_number VARCHAR(64) NOT NULL DEFAULT '',
		bill_type VARCHAR(16) NOT NULL DEFAULT 'B',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		inferred_categories JSONB NOT NULL DEFAULT '[]',
		subjects JSONB NOT NULL DEFAULT '[]',
		committee_name VARCHAR(256),
		last_action TEXT,
		last_action_date DATE,
		pdf_url TEXT,
		embedding VECTOR(384),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.sponsors (
		sponsor_id BIGINT PRIMARY KEY,
		name VARCHAR(256) NOT NULL,
		party VARCHAR(64) NOT NULL DEFAULT '',
		district VARCHAR(64) NOT NULL DEFAULT '',
		role VARCHAR(64) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.bill_sponsors (
		bill_id BIGINT NOT NULL REFERENCES %[1]s.bills (bill_id),
		sponsor_id BIGINT NOT NULL REFERENCES %[1]s.sponsors (sponsor_id),
		PRIMARY KEY (bill_id, sponsor_id)
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.roll_calls (
		roll_call_id BIGINT PRIMARY KEY,
		bill_id BIGINT NOT NULL REFERENCES %[1]s.bills (bill_id),
		date DATE,
		yea INT NOT NULL DEFAULT 0,
		nay INT NOT NULL DEFAULT 0,
		nv INT NOT NULL DEFAULT 0,
		absent INT NOT NULL DEFAULT 0,
		passed BOOLEAN NOT NULL DEFAULT false,
		chamber VARCHAR(32) NOT NULL DEFAULT '',
		chamber_id INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.roll_call_votes (
		roll_call_id BIGINT NOT NULL REFERENCES %[1]s.roll_calls (roll_call_id),
		sponsor_id BIGINT NOT NULL REFERENCES %[1]s.sponsors (sponsor_id),
		vote VARCHAR(8) NOT NULL,
		PRIMARY KEY (roll_call_id, sponsor_id)
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.process_tracker (
		id SERIAL PRIMARY KEY,
		absolute_path TEXT NOT NULL UNIQUE,
		file_type VARCHAR(16) NOT NULL,
		region VARCHAR(64) NOT NULL DEFAULT '',
		session VARCHAR(128) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.voter_table_ddl (
		primary_key SERIAL PRIMARY KEY,
		table_name VARCHAR(128) NOT NULL UNIQUE,
		table_ddl TEXT NOT NULL,
		table_embedding VECTOR(1536),
		updated TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.voter_table_ddl_embeddings (
		id SERIAL PRIMARY KEY,
		parent_id INT NOT NULL REFERENCES %[1]s.voter_table_ddl (primary_key) ON DELETE CASCADE,
		chunk_index INT NOT NULL,
		chunk_embedding VECTOR(1536) NOT NULL
	)`,
}

// InitSchema creates the schema, the pgvector extension, all fixed
// tables, and the bill ANN index. Safe to run repeatedly.
func (b *Backend) InitSchema(ctx context.Context) error {
	if _, err := b.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}
	if _, err := b.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", b.schema)); err != nil {
		return fmt.Errorf("creating schema %s: %w", b.schema, err)
	}
	for _, ddl := range fixedTableDDL {
		if _, err := b.pool.Exec(ctx, fmt.Sprintf(ddl, b.schema)); err != nil {
			return fmt.Errorf("creating fixed tables: %w", err)
		}
	}
	if err := b.CreateSearchIndex(ctx); err != nil {
		return err
	}
	b.logger.Info("schema initialized", "schema", b.schema)
	return nil
}

// DropSearchIndex removes the bill ANN index. Bulk embedding runs drop
// it first so inserts do not pay per-row index maintenance.
func (b *Backend) DropSearchIndex(ctx context.Context) error {
	stmt := fmt.Sprintf("DROP INDEX IF EXISTS %s.%s", b.schema, billIndexName)
	if _, err := b.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("dropping bill search index: %w", err)
	}
	return nil
}

// CreateSearchIndex builds the HNSW index on bills.embedding.
// maintenance_work_mem is raised for the build and restored by session
// close.
func (b *Backend) CreateSearchIndex(ctx context.Context) error {
	return b.createHNSWIndex(ctx, billIndexName, b.qualified("bills"), "embedding")
}

func (b *Backend) createHNSWIndex(ctx context.Context, indexName, table, column string) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	setMem := fmt.Sprintf("SET maintenance_work_mem = '%s'", indexBuildWorkMem)
	if _, err := conn.Exec(ctx, setMem); err != nil {
		return fmt.Errorf("raising maintenance_work_mem: %w", err)
	}
	defer func() {
		// Best effort; the setting is session-scoped anyway.
		_, _ = conn.Exec(ctx, "RESET maintenance_work_mem")
	}()

	stmt := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (%s vector_cosine_ops) WITH (m = %d, ef_construction = %d)",
		indexName, table, column, hnswM, hnswEFConstruction,
	)
	if _, err := conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("building index %s: %w", indexName, err)
	}
	return nil
}
