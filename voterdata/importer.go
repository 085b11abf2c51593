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

package voterdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/legisearch/ai"
	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

const (
	// importBatchSize is how many rows accumulate before insertion, and
	// how many feed schema inference.
	importBatchSize = 500

	// sampleRows is how many rows from the first batch go to the
	// schema inferrer.
	sampleRows = 20

	// DDL documents are chunked for embedding at this size.
	ddlChunkSize    = 1000
	ddlChunkOverlap = 200
)

// timestampLayouts are tried in order when normalizing TIMESTAMP
// column values.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

var columnSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// Importer loads pipe-delimited voter extracts into dynamically created
// value tables, registering each table's DDL with chunk embeddings for
// schema retrieval.
type Importer struct {
	backend  storage.Backend
	inferrer ai.SchemaInferrer
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewImporter creates a voter extract importer.
func NewImporter(backend storage.Backend, inferrer ai.SchemaInferrer, embedder ai.Embedder, logger *slog.Logger) (*Importer, error) {
	if backend == nil {
		return nil, errors.New("storage backend required")
	}
	if inferrer == nil || embedder == nil {
		return nil, errors.New("AI provider required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		backend:  backend,
		inferrer: inferrer,
		embedder: embedder,
		logger:   logger.With("component", "voterdata"),
	}, nil
}

// ImportDirectory processes every *.csv file under dir in lexical
// order. All existing value tables are dropped before the first file;
// a voter import is a full refresh, not an increment.
func (imp *Importer) ImportDirectory(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	var tableNames []string
	first := true
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		if first {
			if err := imp.backend.DropValueTables(ctx); err != nil {
				return fmt.Errorf("dropping previous value tables: %w", err)
			}
			first = false
		}
		path := filepath.Join(dir, entry.Name())
		imp.logger.Info("importing voter extract", "path", path)
		name, err := imp.importFile(ctx, path, tableNames)
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		tableNames = append(tableNames, name)
	}
	if first {
		imp.logger.Warn("no csv files found", "dir", dir)
	}
	return nil
}

// importFile streams one extract into a new value table and returns the
// table's name. The schema is inferred from the first batch; the table
// is created before any insert.
func (imp *Importer) importFile(ctx context.Context, path string, excludeTableNames []string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := NewReader(f, imp.logger)
	if err != nil {
		return "", err
	}

	batch, readErr := reader.NextBatch(importBatchSize)
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return "", readErr
	}
	if len(batch) == 0 {
		return "", fmt.Errorf("%s has no data rows", path)
	}

	info, err := imp.inferSchema(ctx, filepath.Base(path), reader.Header(), batch, excludeTableNames)
	if err != nil {
		return "", err
	}
	if err := imp.backend.CreateValueTable(ctx, info); err != nil {
		return "", err
	}
	if err := imp.registerDDL(ctx, info); err != nil {
		return "", err
	}

	columns := sanitizeColumns(reader.Header())
	total := 0
	for {
		normalizeTimestamps(batch, columns, info)
		if err := imp.backend.InsertRows(ctx, info.TableName, columns, batch); err != nil {
			return "", err
		}
		total += len(batch)
		if errors.Is(readErr, io.EOF) {
			break
		}
		batch, readErr = reader.NextBatch(importBatchSize)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return "", readErr
		}
		if len(batch) == 0 {
			break
		}
	}
	imp.logger.Info("voter extract imported",
		"table", info.TableName, "rows", total, "skipped", reader.Skipped())
	return info.TableName, nil
}

// inferSchema asks the model for a table schema over a small sample,
// then reconciles the result with the actual header: every header
// column must exist, defaulting to VARCHAR when the model dropped it.
func (imp *Importer) inferSchema(ctx context.Context, fileName string, header []string, batch [][]string, excludeTableNames []string) (*core.TableInfo, error) {
	sample := make([]string, 0, sampleRows)
	for i, row := range batch {
		if i == sampleRows {
			break
		}
		doc := make(map[string]string, len(header))
		for j, name := range header {
			doc[name] = row[j]
		}
		encoded, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding sample row: %w", err)
		}
		sample = append(sample, string(encoded))
	}

	info, err := imp.inferrer.InferTableSchema(ctx, fileName, sample, excludeTableNames)
	if err != nil {
		return nil, fmt.Errorf("inferring schema for %s: %w", fileName, err)
	}

	byName := make(map[string]core.ColumnInfo, len(info.Columns))
	for name, col := range info.Columns {
		byName[sanitizeColumn(name)] = col
	}
	columns := make(map[string]core.ColumnInfo, len(header))
	for _, name := range sanitizeColumns(header) {
		if col, ok := byName[name]; ok {
			columns[name] = col
		} else {
			imp.logger.Warn("column missing from inferred schema, using VARCHAR", "column", name)
			columns[name] = core.ColumnInfo{Type: "VARCHAR"}
		}
	}
	info.Columns = columns
	return info, nil
}

// registerDDL stores the annotated CREATE TABLE text with chunked
// embeddings so schema retrieval can find the table later.
func (imp *Importer) registerDDL(ctx context.Context, info *core.TableInfo) error {
	ddl := info.CreateTableDDL()
	chunks, err := ai.SplitText(ddl, ddlChunkSize, ddlChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunking DDL for %s: %w", info.TableName, err)
	}
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vector, err := imp.embedder.EmbedText(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embedding DDL chunk for %s: %w", info.TableName, err)
		}
		vectors[i] = vector
	}
	doc := &core.SchemaDocument{TableName: info.TableName, TableDDL: ddl}
	return imp.backend.UpsertSchemaDocument(ctx, doc, vectors)
}

// normalizeTimestamps rewrites values bound for TIMESTAMP columns into
// a form Postgres always accepts. Unparseable values pass through
// unchanged.
func normalizeTimestamps(rows [][]string, columns []string, info *core.TableInfo) {
	timestampCols := make([]int, 0, 2)
	for i, name := range columns {
		if col, ok := info.Columns[name]; ok && col.Type == "TIMESTAMP" {
			timestampCols = append(timestampCols, i)
		}
	}
	if len(timestampCols) == 0 {
		return
	}
	for _, row := range rows {
		for _, i := range timestampCols {
			if row[i] == "" {
				continue
			}
			for _, layout := range timestampLayouts {
				if parsed, err := time.Parse(layout, row[i]); err == nil {
					row[i] = parsed.Format("2006-01-02 15:04:05")
					break
				}
			}
		}
	}
}

func sanitizeColumns(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		out[i] = sanitizeColumn(name)
	}
	return out
}

func sanitizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = columnSanitizer.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		name = "col_" + name
	}
	return name
}
