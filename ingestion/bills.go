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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

const historyDateLayout = "2006-01-02"

// billFile is the on-disk shape of a bill/*.json source file.
type billFile struct {
	Bill struct {
		BillID      int64           `json:"bill_id"`
		BillNumber  string          `json:"bill_number"`
		BillType    string          `json:"bill_type"`
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Subjects    []string        `json:"subjects"`
		Committee   json.RawMessage `json:"committee"`
		History     []struct {
			Action string `json:"action"`
			Date   string `json:"date"`
		} `json:"history"`
		Texts []struct {
			URL string `json:"url"`
		} `json:"texts"`
		Sponsors []struct {
			PeopleID int64 `json:"people_id"`
		} `json:"sponsors"`
	} `json:"bill"`
}

// ImportBills walks root/<region>/<session>/bill/*.json, classifies
// each bill, upserts it, and links its sponsors. Sponsor links that hit
// foreign key violations are logged and dropped row by row; the bill
// itself still completes.
func (imp *Importer) ImportBills(ctx context.Context, root string) (*RunSummary, error) {
	if root == "" {
		return nil, ErrRootRequired
	}
	imp.logger.Info("importing bills", "root", root)
	summary, err := walkCategory(ctx, root, core.CategoryBill, imp.backend, imp.logger, imp.processBillFile)
	if err != nil {
		return summary, err
	}
	imp.logger.Info("bill import done",
		"completed", summary.Completed(), "skipped", summary.Skipped(), "failed", summary.Failed())
	return summary, nil
}

func (imp *Importer) processBillFile(ctx context.Context, file sourceFile) error {
	raw, err := os.ReadFile(file.path)
	if err != nil {
		return err
	}
	var parsed billFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	data := parsed.Bill

	categories, err := imp.classifier.ClassifyBill(ctx, data.Title, data.Description)
	if err != nil {
		return fmt.Errorf("classifying bill %d: %w", data.BillID, err)
	}

	bill := &core.Bill{
		BillID:             data.BillID,
		BillNumber:         data.BillNumber,
		BillType:           data.BillType,
		Title:              data.Title,
		Description:        data.Description,
		InferredCategories: categories,
		Subjects:           data.Subjects,
		CommitteeName:      committeeName(data.Committee),
	}
	if bill.BillType == "" {
		bill.BillType = "B"
	}
	if n := len(data.History); n > 0 {
		last := data.History[n-1]
		if last.Action != "" {
			bill.LastAction = &last.Action
		}
		if date, err := time.Parse(historyDateLayout, last.Date); err == nil {
			bill.LastActionDate = &date
		}
	}
	if n := len(data.Texts); n > 0 && data.Texts[n-1].URL != "" {
		bill.PDFURL = &data.Texts[n-1].URL
	}

	if err := imp.backend.UpsertBill(ctx, bill); err != nil {
		return err
	}
	imp.linkSponsors(ctx, bill.BillID, data.Sponsors)
	return nil
}

// linkSponsors inserts bill-sponsor join rows through the worker pool.
// Foreign key violations mean the sponsor was never imported; each is
// logged and skipped without failing the bill.
func (imp *Importer) linkSponsors(ctx context.Context, billID int64, sponsors []struct {
	PeopleID int64 `json:"people_id"`
}) {
	var wg sync.WaitGroup
	for _, sponsor := range sponsors {
		sponsorID := sponsor.PeopleID
		wg.Add(1)
		if err := imp.linkPool.Submit(func() {
			defer wg.Done()
			err := imp.backend.LinkSponsor(ctx, billID, sponsorID)
			switch {
			case errors.Is(err, storage.ErrForeignKey):
				imp.logger.Warn("sponsor not found, link skipped", "bill", billID, "sponsor", sponsorID)
			case err != nil:
				imp.logger.Error("linking sponsor failed", "bill", billID, "sponsor", sponsorID, "err", err)
			}
		}); err != nil {
			wg.Done()
			imp.logger.Error("submitting link task failed", "bill", billID, "sponsor", sponsorID, "err", err)
		}
	}
	wg.Wait()
}

// committeeName pulls the name out of the committee field, which is an
// object when assigned and an empty array when not.
func committeeName(raw json.RawMessage) *string {
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var committee struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &committee); err != nil || committee.Name == "" {
		return nil
	}
	return &committee.Name
}
