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

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/poiesic/legisearch/core"
)

// UpsertSchemaDocument stores the DDL document for a value table along
// with its chunk embeddings. Replacing the parent row cascades away any
// previous chunks, so each registration is atomic.
func (b *Backend) UpsertSchemaDocument(ctx context.Context, doc *core.SchemaDocument, chunks [][]float32) error {
	return b.inTx(ctx, func(tx pgx.Tx) error {
		del := fmt.Sprintf("DELETE FROM %s WHERE table_name = $1", b.qualified("voter_table_ddl"))
		if _, err := tx.Exec(ctx, del, doc.TableName); err != nil {
			return fmt.Errorf("removing previous DDL for %s: %w", doc.TableName, err)
		}

		ins := fmt.Sprintf(`
			INSERT INTO %s (table_name, table_ddl, updated)
			VALUES ($1, $2, now())
			RETURNING primary_key`,
			b.qualified("voter_table_ddl"),
		)
		var parentID int64
		if err := tx.QueryRow(ctx, ins, doc.TableName, doc.TableDDL).Scan(&parentID); err != nil {
			return fmt.Errorf("inserting DDL for %s: %w", doc.TableName, err)
		}
		doc.PrimaryKey = parentID

		insChunk := fmt.Sprintf(`
			INSERT INTO %s (parent_id, chunk_index, chunk_embedding)
			VALUES ($1, $2, $3)`,
			b.qualified("voter_table_ddl_embeddings"),
		)
		batch := &pgx.Batch{}
		for i, chunk := range chunks {
			batch.Queue(insChunk, parentID, i, pgvector.NewVector(chunk))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting DDL chunks for %s: %w", doc.TableName, err)
		}
		return nil
	})
}

// SearchChunks finds DDL documents whose chunks are semantically close
// to vector. Multiple chunk hits against the same parent collapse to
// one result, scored by the best chunk.
func (b *Backend) SearchChunks(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SchemaDocument, error) {
	stmt := fmt.Sprintf(`
		SELECT d.primary_key, d.table_name, d.table_ddl, d.updated
		FROM %s d
		JOIN (
			SELECT parent_id, MAX(1 - (chunk_embedding <=> $1)) AS best
			FROM %s
			WHERE 1 - (chunk_embedding <=> $1) > $2
			GROUP BY parent_id
		) hits ON hits.parent_id = d.primary_key
		ORDER BY hits.best DESC
		LIMIT $3`,
		b.qualified("voter_table_ddl"),
		b.qualified("voter_table_ddl_embeddings"),
	)
	rows, err := b.pool.Query(ctx, stmt, pgvector.NewVector(vector), minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("searching DDL chunks: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.SchemaDocument, error) {
		var doc core.SchemaDocument
		err := row.Scan(&doc.PrimaryKey, &doc.TableName, &doc.TableDDL, &doc.Updated)
		return &doc, err
	})
}

// TableNames lists all registered value tables.
func (b *Backend) TableNames(ctx context.Context) ([]string, error) {
	stmt := fmt.Sprintf("SELECT table_name FROM %s ORDER BY table_name", b.qualified("voter_table_ddl"))
	rows, err := b.pool.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("listing value tables: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var name string
		err := row.Scan(&name)
		return name, err
	})
}
