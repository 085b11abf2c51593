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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

const (
	// embeddingTableSuffix names the row-embedding side table of each
	// value table.
	embeddingTableSuffix = "_embedding"

	// insertRowsBatchSize bounds multi-row INSERT statements to stay
	// well under Postgres's parameter limit.
	insertRowsBatchSize = 500
)

var allowedColumnTypes = map[string]bool{
	"VARCHAR":   true,
	"TIMESTAMP": true,
}

// CreateValueTable creates the value table described by info plus its
// embedding side table, replacing any previous versions.
func (b *Backend) CreateValueTable(ctx context.Context, info *core.TableInfo) error {
	if err := b.validateTableInfo(info); err != nil {
		return err
	}

	names := info.ColumnNames()
	cols := make([]string, 0, len(names))
	for _, name := range names {
		cols = append(cols, fmt.Sprintf("%s %s", name, info.Columns[name].Type))
	}

	table := b.qualified(info.TableName)
	embedTable := table + embeddingTableSuffix

	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", embedTable),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", table),
		fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", ")),
		fmt.Sprintf(`CREATE TABLE %s (
			pid SERIAL PRIMARY KEY,
			json_string TEXT NOT NULL,
			embedding VECTOR(%d)
		)`, embedTable, ValueVectorDim),
	}
	for _, stmt := range stmts {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating value table %s: %w", info.TableName, err)
		}
	}
	return nil
}

// DropValueTables removes every registered value table, its embedding
// side table, and all DDL documents.
func (b *Backend) DropValueTables(ctx context.Context) error {
	names, err := b.TableNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if !validIdent(name) {
			return fmt.Errorf("%w: registered table %q", storage.ErrInvalidIdentifier, name)
		}
		drops := []string{
			fmt.Sprintf("DROP TABLE IF EXISTS %s%s", b.qualified(name), embeddingTableSuffix),
			fmt.Sprintf("DROP TABLE IF EXISTS %s", b.qualified(name)),
		}
		for _, stmt := range drops {
			if _, err := b.pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("dropping value table %s: %w", name, err)
			}
		}
	}
	del := fmt.Sprintf("DELETE FROM %s", b.qualified("voter_table_ddl"))
	if _, err := b.pool.Exec(ctx, del); err != nil {
		return fmt.Errorf("clearing DDL documents: %w", err)
	}
	return nil
}

// InsertRows bulk-inserts rows into a value table and mirrors each row
// as a JSON document into its embedding side table. Rows are inserted
// in bounded multi-row statements inside one transaction per call.
func (b *Backend) InsertRows(ctx context.Context, tableName string, columns []string, rows [][]string) error {
	if !validIdent(tableName) {
		return fmt.Errorf("%w: table %q", storage.ErrInvalidIdentifier, tableName)
	}
	for _, col := range columns {
		if !validIdent(strings.ToLower(col)) {
			return fmt.Errorf("%w: column %q", storage.ErrInvalidIdentifier, col)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	return b.inTx(ctx, func(tx pgx.Tx) error {
		for start := 0; start < len(rows); start += insertRowsBatchSize {
			end := min(start+insertRowsBatchSize, len(rows))
			if err := b.insertRowChunk(ctx, tx, tableName, columns, rows[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Backend) insertRowChunk(ctx context.Context, tx pgx.Tx, tableName string, columns []string, rows [][]string) error {
	var (
		placeholders = make([]string, 0, len(rows))
		args         = make([]any, 0, len(rows)*len(columns))
		jsonDocs     = make([]string, 0, len(rows))
	)
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("%w: row has %d values, want %d", storage.ErrInvalidQuery, len(row), len(columns))
		}
		marks := make([]string, len(columns))
		doc := make(map[string]string, len(columns))
		for j, value := range row {
			marks[j] = fmt.Sprintf("$%d", i*len(columns)+j+1)
			args = append(args, nullIfEmpty(value))
			doc[columns[j]] = value
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")

		encoded, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encoding row for %s: %w", tableName, err)
		}
		jsonDocs = append(jsonDocs, string(encoded))
	}

	ins := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		b.qualified(tableName), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.Exec(ctx, ins, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", tableName, err)
	}

	insDoc := fmt.Sprintf("INSERT INTO %s%s (json_string) VALUES ($1)",
		b.qualified(tableName), embeddingTableSuffix)
	batch := &pgx.Batch{}
	for _, doc := range jsonDocs {
		batch.Queue(insDoc, doc)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting row documents for %s: %w", tableName, err)
	}
	return nil
}

// EmbeddingTables lists the row-embedding side tables of all value
// tables present in the schema.
func (b *Backend) EmbeddingTables(ctx context.Context) ([]string, error) {
	stmt := `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_name LIKE '%\_embedding'
		ORDER BY table_name`
	rows, err := b.pool.Query(ctx, stmt, b.schema)
	if err != nil {
		return nil, fmt.Errorf("listing embedding tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var name string
		err := row.Scan(&name)
		return name, err
	})
	if err != nil {
		return nil, err
	}
	// The DDL chunk table matches the LIKE pattern but is not a value
	// side table.
	filtered := names[:0]
	for _, name := range names {
		if name != "voter_table_ddl_embeddings" {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// BackfillValueBatch claims up to limit unembedded rows from the named
// embedding table with FOR UPDATE SKIP LOCKED, embeds them, and writes
// the vectors back inside one transaction.
func (b *Backend) BackfillValueBatch(ctx context.Context, tableName string, limit int, embed storage.EmbedValuesFunc) (int, error) {
	if !validIdent(tableName) {
		return 0, fmt.Errorf("%w: table %q", storage.ErrInvalidIdentifier, tableName)
	}
	var processed int
	err := b.inTx(ctx, func(tx pgx.Tx) error {
		claim := fmt.Sprintf(`
			SELECT pid, json_string
			FROM %s
			WHERE embedding IS NULL
			ORDER BY pid
			LIMIT $1
			FOR UPDATE SKIP LOCKED`,
			b.qualified(tableName),
		)
		rows, err := tx.Query(ctx, claim, limit)
		if err != nil {
			return fmt.Errorf("claiming rows from %s: %w", tableName, err)
		}
		records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.ValueRecord, error) {
			var rec core.ValueRecord
			err := row.Scan(&rec.PID, &rec.JSONString)
			return &rec, err
		})
		if err != nil {
			return fmt.Errorf("scanning rows from %s: %w", tableName, err)
		}
		if len(records) == 0 {
			return nil
		}

		if err := embed(ctx, records); err != nil {
			return fmt.Errorf("embedding rows from %s: %w", tableName, err)
		}

		update := fmt.Sprintf("UPDATE %s SET embedding = $1 WHERE pid = $2", b.qualified(tableName))
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(update, pgvector.NewVector(rec.Embedding), rec.PID)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("writing embeddings to %s: %w", tableName, err)
		}
		processed = len(records)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

// DropValueIndex removes the ANN index on the named embedding table.
func (b *Backend) DropValueIndex(ctx context.Context, tableName string) error {
	if !validIdent(tableName) {
		return fmt.Errorf("%w: table %q", storage.ErrInvalidIdentifier, tableName)
	}
	stmt := fmt.Sprintf("DROP INDEX IF EXISTS %s.%s_hnsw_idx", b.schema, tableName)
	if _, err := b.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("dropping index on %s: %w", tableName, err)
	}
	return nil
}

// CreateValueIndex builds the HNSW index on the named embedding table.
func (b *Backend) CreateValueIndex(ctx context.Context, tableName string) error {
	if !validIdent(tableName) {
		return fmt.Errorf("%w: table %q", storage.ErrInvalidIdentifier, tableName)
	}
	return b.createHNSWIndex(ctx, tableName+"_hnsw_idx", b.qualified(tableName), "embedding")
}

// SearchValues finds rows in the named embedding table semantically
// close to vector.
func (b *Backend) SearchValues(ctx context.Context, tableName string, vector []float32, minSimilarity float32, limit int) ([]*core.ValueRecord, error) {
	if !validIdent(tableName) {
		return nil, fmt.Errorf("%w: table %q", storage.ErrInvalidIdentifier, tableName)
	}
	stmt := fmt.Sprintf(`
		SELECT pid, json_string
		FROM %s
		WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) > $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		b.qualified(tableName),
	)
	rows, err := b.pool.Query(ctx, stmt, pgvector.NewVector(vector), minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", tableName, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.ValueRecord, error) {
		var rec core.ValueRecord
		err := row.Scan(&rec.PID, &rec.JSONString)
		return &rec, err
	})
}

// reservedTableNames are fixed tables an inferred schema must never
// shadow or replace.
var reservedTableNames = map[string]bool{
	"voter_table_ddl":            true,
	"voter_table_ddl_embeddings": true,
}

func (b *Backend) validateTableInfo(info *core.TableInfo) error {
	if !strings.HasPrefix(info.TableName, "voter_") || !validIdent(info.TableName) {
		return fmt.Errorf("%w: table %q", storage.ErrInvalidIdentifier, info.TableName)
	}
	if reservedTableNames[info.TableName] || reservedTableNames[info.TableName+embeddingTableSuffix] {
		return fmt.Errorf("%w: table %q is reserved", storage.ErrInvalidIdentifier, info.TableName)
	}
	if len(info.Columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", storage.ErrInvalidQuery, info.TableName)
	}
	for name, col := range info.Columns {
		if !validIdent(strings.ToLower(name)) {
			return fmt.Errorf("%w: column %q", storage.ErrInvalidIdentifier, name)
		}
		if !allowedColumnTypes[col.Type] {
			return fmt.Errorf("%w: column %q has unsupported type %q", storage.ErrInvalidQuery, name, col.Type)
		}
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
