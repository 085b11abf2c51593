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

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

// UpsertBill inserts or refreshes a bill by external id. The embedding
// is cleared on update so changed text gets re-embedded by the next
// backfill run.
func (b *Backend) UpsertBill(ctx context.Context, bill *core.Bill) error {
	if err := core.ValidateBill(bill); err != nil {
		return err
	}
	categories, err := json.Marshal(emptyIfNil(bill.InferredCategories))
	if err != nil {
		return fmt.Errorf("encoding categories for bill %d: %w", bill.BillID, err)
	}
	subjects, err := json.Marshal(emptyIfNil(bill.Subjects))
	if err != nil {
		return fmt.Errorf("encoding subjects for bill %d: %w", bill.BillID, err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (bill_id, bill_number, bill_type, title, description,
			inferred_categories, subjects, committee_name, last_action,
			last_action_date, pdf_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (bill_id) DO UPDATE SET
			bill_number = EXCLUDED.bill_number,
			bill_type = EXCLUDED.bill_type,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			inferred_categories = EXCLUDED.inferred_categories,
			subjects = EXCLUDED.subjects,
			committee_name = EXCLUDED.committee_name,
			last_action = EXCLUDED.last_action,
			last_action_date = EXCLUDED.last_action_date,
			pdf_url = EXCLUDED.pdf_url,
			embedding = NULL,
			updated_at = now()`,
		b.qualified("bills"),
	)
	_, err = b.pool.Exec(ctx, stmt,
		bill.BillID, bill.BillNumber, bill.BillType, bill.Title, bill.Description,
		categories, subjects, bill.CommitteeName, bill.LastAction,
		bill.LastActionDate, bill.PDFURL,
	)
	if err != nil {
		return fmt.Errorf("upserting bill %d: %w", bill.BillID, err)
	}
	return nil
}

// LinkSponsor associates a sponsor with a bill. A missing bill or
// sponsor surfaces as storage.ErrForeignKey so importers can tolerate
// it per row.
func (b *Backend) LinkSponsor(ctx context.Context, billID, sponsorID int64) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (bill_id, sponsor_id)
		VALUES ($1, $2)
		ON CONFLICT (bill_id, sponsor_id) DO NOTHING`,
		b.qualified("bill_sponsors"),
	)
	if _, err := b.pool.Exec(ctx, stmt, billID, sponsorID); err != nil {
		if isForeignKeyErr(err) {
			return fmt.Errorf("linking sponsor %d to bill %d: %w", sponsorID, billID, storage.ErrForeignKey)
		}
		return fmt.Errorf("linking sponsor %d to bill %d: %w", sponsorID, billID, err)
	}
	return nil
}

// CountMissingEmbeddings returns how many bills still need a vector.
func (b *Backend) CountMissingEmbeddings(ctx context.Context) (int64, error) {
	stmt := fmt.Sprintf("SELECT count(*) FROM %s WHERE embedding IS NULL", b.qualified("bills"))
	var n int64
	if err := b.pool.QueryRow(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unembedded bills: %w", err)
	}
	return n, nil
}

// BackfillBatch claims up to limit unembedded bills with FOR UPDATE
// SKIP LOCKED, runs embed to populate their vectors, and writes them
// back in one batch, all inside a single transaction. Rows locked here
// are invisible to concurrent claimers, so each bill is embedded by
// exactly one worker.
func (b *Backend) BackfillBatch(ctx context.Context, limit int, embed storage.EmbedBillsFunc) (int, error) {
	var processed int
	err := b.inTx(ctx, func(tx pgx.Tx) error {
		claim := fmt.Sprintf(`
			SELECT bill_id, title, description
			FROM %s
			WHERE embedding IS NULL
			ORDER BY bill_id
			LIMIT $1
			FOR UPDATE SKIP LOCKED`,
			b.qualified("bills"),
		)
		rows, err := tx.Query(ctx, claim, limit)
		if err != nil {
			return fmt.Errorf("claiming bill batch: %w", err)
		}
		bills, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.Bill, error) {
			var bill core.Bill
			err := row.Scan(&bill.BillID, &bill.Title, &bill.Description)
			return &bill, err
		})
		if err != nil {
			return fmt.Errorf("scanning bill batch: %w", err)
		}
		if len(bills) == 0 {
			return nil
		}

		if err := embed(ctx, bills); err != nil {
			return fmt.Errorf("embedding bill batch: %w", err)
		}

		update := fmt.Sprintf("UPDATE %s SET embedding = $1, updated_at = now() WHERE bill_id = $2", b.qualified("bills"))
		batch := &pgx.Batch{}
		for _, bill := range bills {
			batch.Queue(update, pgvector.NewVector(bill.Embedding), bill.BillID)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("writing bill embeddings: %w", err)
		}
		processed = len(bills)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

// SimilarByVector returns bills within maxDistance of vector by cosine
// distance, nearest first.
func (b *Backend) SimilarByVector(ctx context.Context, vector []float32, maxDistance float32, limit int) ([]*core.SimilarBill, error) {
	stmt := fmt.Sprintf(`
		SELECT bill_number, title, description, subjects, inferred_categories,
			committee_name, last_action, last_action_date,
			1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE embedding IS NOT NULL AND embedding <=> $1 < $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		b.qualified("bills"),
	)
	rows, err := b.pool.Query(ctx, stmt, pgvector.NewVector(vector), maxDistance, limit)
	if err != nil {
		return nil, fmt.Errorf("searching bills by vector: %w", err)
	}
	return collectSimilarBills(rows)
}

// SimilarToBill finds bills similar to an existing bill, excluding the
// bill itself.
func (b *Backend) SimilarToBill(ctx context.Context, billID int64, maxDistance float32, limit int) ([]*core.SimilarBill, error) {
	stmt := fmt.Sprintf(`
		SELECT o.bill_number, o.title, o.description, o.subjects, o.inferred_categories,
			o.committee_name, o.last_action, o.last_action_date,
			1 - (o.embedding <=> p.embedding) AS similarity
		FROM %[1]s o, %[1]s p
		WHERE p.bill_id = $1
			AND p.embedding IS NOT NULL
			AND o.bill_id <> p.bill_id
			AND o.embedding IS NOT NULL
			AND o.embedding <=> p.embedding < $2
		ORDER BY o.embedding <=> p.embedding
		LIMIT $3`,
		b.qualified("bills"),
	)
	rows, err := b.pool.Query(ctx, stmt, billID, maxDistance, limit)
	if err != nil {
		return nil, fmt.Errorf("searching bills similar to %d: %w", billID, err)
	}
	bills, err := collectSimilarBills(rows)
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		// Distinguish "no neighbors" from "no such probe bill".
		exists, err := b.billHasEmbedding(ctx, billID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("bill %d: %w", billID, storage.ErrNotFound)
		}
	}
	return bills, nil
}

// ByCategory returns bills whose inferred categories include category,
// via JSONB containment.
func (b *Backend) ByCategory(ctx context.Context, category string, limit int) ([]*core.Bill, error) {
	probe, err := json.Marshal([]string{category})
	if err != nil {
		return nil, fmt.Errorf("encoding category probe: %w", err)
	}
	stmt := fmt.Sprintf(`
		SELECT bill_id, bill_number, bill_type, title, description,
			inferred_categories, subjects, committee_name, last_action,
			last_action_date, pdf_url
		FROM %s
		WHERE inferred_categories @> $1
		ORDER BY bill_id
		LIMIT $2`,
		b.qualified("bills"),
	)
	rows, err := b.pool.Query(ctx, stmt, probe, limit)
	if err != nil {
		return nil, fmt.Errorf("searching bills by category %q: %w", category, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.Bill, error) {
		var (
			bill       core.Bill
			categories []byte
			subjects   []byte
		)
		err := row.Scan(&bill.BillID, &bill.BillNumber, &bill.BillType, &bill.Title,
			&bill.Description, &categories, &subjects, &bill.CommitteeName,
			&bill.LastAction, &bill.LastActionDate, &bill.PDFURL)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(categories, &bill.InferredCategories); err != nil {
			return nil, fmt.Errorf("decoding categories for bill %d: %w", bill.BillID, err)
		}
		if err := json.Unmarshal(subjects, &bill.Subjects); err != nil {
			return nil, fmt.Errorf("decoding subjects for bill %d: %w", bill.BillID, err)
		}
		return &bill, nil
	})
}

func (b *Backend) billHasEmbedding(ctx context.Context, billID int64) (bool, error) {
	stmt := fmt.Sprintf("SELECT count(*) FROM %s WHERE bill_id = $1 AND embedding IS NOT NULL", b.qualified("bills"))
	var n int64
	if err := b.pool.QueryRow(ctx, stmt, billID).Scan(&n); err != nil {
		return false, fmt.Errorf("checking bill %d: %w", billID, err)
	}
	return n > 0, nil
}

func collectSimilarBills(rows pgx.Rows) ([]*core.SimilarBill, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.SimilarBill, error) {
		var (
			bill       core.SimilarBill
			subjects   []byte
			categories []byte
		)
		err := row.Scan(&bill.BillNumber, &bill.Title, &bill.Description,
			&subjects, &categories, &bill.CommitteeName, &bill.LastAction,
			&bill.LastActionDate, &bill.Similarity)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(subjects, &bill.Subjects); err != nil {
			return nil, fmt.Errorf("decoding subjects: %w", err)
		}
		if err := json.Unmarshal(categories, &bill.InferredCategories); err != nil {
			return nil, fmt.Errorf("decoding categories: %w", err)
		}
		return &bill, nil
	})
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
