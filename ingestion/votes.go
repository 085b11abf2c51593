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
	"bytes"
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

// voteFile is the on-disk shape of a vote/*.json source file.
type voteFile struct {
	RollCall struct {
		RollCallID int64     `json:"roll_call_id"`
		BillID     int64     `json:"bill_id"`
		Date       string    `json:"date"`
		Yea        int       `json:"yea"`
		Nay        int       `json:"nay"`
		NV         int       `json:"nv"`
		Absent     int       `json:"absent"`
		Passed     boolFlag  `json:"passed"`
		Chamber    string    `json:"chamber"`
		ChamberID  int       `json:"chamber_id"`
		Votes      []struct {
			PeopleID int64  `json:"people_id"`
			VoteText string `json:"vote_text"`
		} `json:"votes"`
	} `json:"roll_call"`
}

// boolFlag accepts both JSON booleans and 0/1 numbers; source files
// carry either depending on export vintage.
type boolFlag bool

func (f *boolFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("cannot parse %q as flag", data)
	}
	return nil
}

// ImportVotes walks root/<region>/<session>/vote/*.json and stores each
// roll call plus its per-legislator votes. A roll call whose bill was
// never imported marks the file failed and the run continues with the
// next file. Individual votes hitting foreign key violations are
// logged and dropped row by row.
func (imp *Importer) ImportVotes(ctx context.Context, root string) (*RunSummary, error) {
	if root == "" {
		return nil, ErrRootRequired
	}
	imp.logger.Info("importing votes", "root", root)
	summary, err := walkCategory(ctx, root, core.CategoryVote, imp.backend, imp.logger, imp.processVoteFile)
	if err != nil {
		return summary, err
	}
	imp.logger.Info("vote import done",
		"completed", summary.Completed(), "skipped", summary.Skipped(), "failed", summary.Failed())
	return summary, nil
}

func (imp *Importer) processVoteFile(ctx context.Context, file sourceFile) error {
	raw, err := os.ReadFile(file.path)
	if err != nil {
		return err
	}
	var parsed voteFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	data := parsed.RollCall

	rollCall := &core.RollCall{
		RollCallID: data.RollCallID,
		BillID:     data.BillID,
		Yea:        data.Yea,
		Nay:        data.Nay,
		NV:         data.NV,
		Absent:     data.Absent,
		Passed:     bool(data.Passed),
		Chamber:    data.Chamber,
		ChamberID:  data.ChamberID,
	}
	if date, err := time.Parse(historyDateLayout, data.Date); err == nil {
		rollCall.Date = date
	}

	if err := imp.backend.UpsertRollCall(ctx, rollCall); err != nil {
		// Includes the missing-bill foreign key case: the file is
		// marked failed and picked up again once the bill arrives.
		return err
	}

	var wg sync.WaitGroup
	for _, v := range data.Votes {
		vote := &core.RollCallVote{
			RollCallID: rollCall.RollCallID,
			SponsorID:  v.PeopleID,
			Vote:       core.VoteValue(v.VoteText),
		}
		wg.Add(1)
		if err := imp.linkPool.Submit(func() {
			defer wg.Done()
			err := imp.backend.UpsertVote(ctx, vote)
			switch {
			case errors.Is(err, storage.ErrForeignKey):
				imp.logger.Warn("sponsor not found, vote skipped",
					"roll_call", vote.RollCallID, "sponsor", vote.SponsorID)
			case err != nil:
				imp.logger.Error("storing vote failed",
					"roll_call", vote.RollCallID, "sponsor", vote.SponsorID, "err", err)
			}
		}); err != nil {
			wg.Done()
			imp.logger.Error("submitting vote task failed",
				"roll_call", vote.RollCallID, "sponsor", vote.SponsorID, "err", err)
		}
	}
	wg.Wait()
	return nil
}
