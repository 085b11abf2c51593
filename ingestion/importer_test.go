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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/legisearch/ai/mock"
	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

// fakeBackend implements the slice of storage.Backend the importer
// touches, in memory. Unimplemented methods panic via the embedded nil
// interface.
type fakeBackend struct {
	storage.Backend

	mu            sync.Mutex
	tracker       map[string]core.Status
	sponsors      map[int64]*core.Sponsor
	bills         map[int64]*core.Bill
	links         map[string]bool
	rollCalls     map[int64]*core.RollCall
	votes         map[string]core.VoteValue
	sponsorWrites int
	billWrites    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tracker:   map[string]core.Status{},
		sponsors:  map[int64]*core.Sponsor{},
		bills:     map[int64]*core.Bill{},
		links:     map[string]bool{},
		rollCalls: map[int64]*core.RollCall{},
		votes:     map[string]core.VoteValue{},
	}
}

func (f *fakeBackend) IsCompleted(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracker[path] == core.StatusCompleted, nil
}

func (f *fakeBackend) UpsertStatus(ctx context.Context, path string, category core.FileCategory, region, session string, status core.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracker[path] = status
	return nil
}

func (f *fakeBackend) UpsertSponsor(ctx context.Context, sponsor *core.Sponsor) error {
	if err := core.ValidateSponsor(sponsor); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *sponsor
	f.sponsors[sponsor.SponsorID] = &copied
	f.sponsorWrites++
	return nil
}

func (f *fakeBackend) UpsertBill(ctx context.Context, bill *core.Bill) error {
	if err := core.ValidateBill(bill); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *bill
	f.bills[bill.BillID] = &copied
	f.billWrites++
	return nil
}

func (f *fakeBackend) LinkSponsor(ctx context.Context, billID, sponsorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sponsors[sponsorID]; !ok {
		return storage.ErrForeignKey
	}
	if _, ok := f.bills[billID]; !ok {
		return storage.ErrForeignKey
	}
	f.links[fmt.Sprintf("%d:%d", billID, sponsorID)] = true
	return nil
}

func (f *fakeBackend) UpsertRollCall(ctx context.Context, rc *core.RollCall) error {
	if err := core.ValidateRollCall(rc); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bills[rc.BillID]; !ok {
		return storage.ErrForeignKey
	}
	copied := *rc
	f.rollCalls[rc.RollCallID] = &copied
	return nil
}

func (f *fakeBackend) UpsertVote(ctx context.Context, vote *core.RollCallVote) error {
	if !vote.Vote.Valid() {
		return core.ErrInvalidVoteValue
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rollCalls[vote.RollCallID]; !ok {
		return storage.ErrForeignKey
	}
	if _, ok := f.sponsors[vote.SponsorID]; !ok {
		return storage.ErrForeignKey
	}
	f.votes[fmt.Sprintf("%d:%d", vote.RollCallID, vote.SponsorID)] = vote.Vote
	return nil
}

// writeCorpusFile writes content under root/region/session/category.
func writeCorpusFile(t *testing.T, root, region, session string, category core.FileCategory, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, region, session, string(category))
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestImporter(t *testing.T, backend storage.Backend) *Importer {
	t.Helper()
	imp, err := NewImporter(backend, mock.NewMockClassifier(), WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(imp.Release)
	return imp
}

func TestNewImporterValidation(t *testing.T) {
	_, err := NewImporter(nil, mock.NewMockClassifier())
	assert.ErrorIs(t, err, ErrBackendRequired)

	_, err = NewImporter(newFakeBackend(), nil)
	assert.ErrorIs(t, err, ErrProviderRequired)
}

func TestImportSponsorsResume(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryPeople, "100.json",
		`{"person": {"people_id": 100, "name": "Jane Smith", "party": "D", "district": "SD-12", "role": "Sen"}}`)

	backend := newFakeBackend()
	imp := newTestImporter(t, backend)

	summary, err := imp.ImportSponsors(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed())
	assert.Equal(t, 0, summary.Skipped())
	require.Contains(t, backend.sponsors, int64(100))
	assert.Equal(t, "Jane Smith", backend.sponsors[100].Name)

	// Second run skips the completed file without touching storage.
	summary, err = imp.ImportSponsors(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Completed())
	assert.Equal(t, 1, summary.Skipped())
	assert.Equal(t, 1, backend.sponsorWrites)
}

func TestImportSponsorsRefreshesOnNewFile(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryPeople, "100.json",
		`{"person": {"people_id": 100, "name": "Jane Smith", "party": "D", "district": "SD-12", "role": "Sen"}}`)

	backend := newFakeBackend()
	imp := newTestImporter(t, backend)
	_, err := imp.ImportSponsors(context.Background(), root)
	require.NoError(t, err)

	// Same legislator appears in a later session with a new party.
	writeCorpusFile(t, root, "us", "2027-2028", core.CategoryPeople, "100.json",
		`{"person": {"people_id": 100, "name": "Jane Smith", "party": "I", "district": "SD-12", "role": "Sen"}}`)
	_, err = imp.ImportSponsors(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "I", backend.sponsors[100].Party)
	assert.Equal(t, 2, backend.sponsorWrites)
}

func TestImportBillsMappingRules(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryPeople, "7.json",
		`{"person": {"people_id": 7, "name": "Alex Doe", "party": "R", "district": "HD-3", "role": "Rep"}}`)
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryBill, "2001.json", `{
		"bill": {
			"bill_id": 2001,
			"bill_number": "HB42",
			"title": "Healthcare facility licensing",
			"description": "Licensing requirements for rural clinics.",
			"subjects": ["Health"],
			"committee": {"name": "Health and Welfare"},
			"history": [
				{"action": "Introduced", "date": "2025-01-10"},
				{"action": "Passed House", "date": "2025-02-14"}
			],
			"texts": [{"url": "http://example.com/v1.pdf"}, {"url": "http://example.com/v2.pdf"}],
			"sponsors": [{"people_id": 7}, {"people_id": 999}]
		}
	}`)

	backend := newFakeBackend()
	imp := newTestImporter(t, backend)
	_, err := imp.ImportSponsors(context.Background(), root)
	require.NoError(t, err)
	summary, err := imp.ImportBills(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed())

	bill := backend.bills[2001]
	require.NotNil(t, bill)
	assert.Equal(t, "HB42", bill.BillNumber)
	assert.Equal(t, "B", bill.BillType, "missing bill_type defaults to B")
	require.NotNil(t, bill.CommitteeName)
	assert.Equal(t, "Health and Welfare", *bill.CommitteeName)
	require.NotNil(t, bill.LastAction)
	assert.Equal(t, "Passed House", *bill.LastAction, "last history entry wins")
	require.NotNil(t, bill.LastActionDate)
	assert.Equal(t, "2025-02-14", bill.LastActionDate.Format("2006-01-02"))
	require.NotNil(t, bill.PDFURL)
	assert.Equal(t, "http://example.com/v2.pdf", *bill.PDFURL, "last text URL wins")
	assert.Contains(t, bill.InferredCategories, "Healthcare")

	// Known sponsor linked, unknown sponsor dropped per row.
	assert.True(t, backend.links["2001:7"])
	assert.False(t, backend.links["2001:999"])
}

func TestImportBillsEmptyCommitteeArray(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryBill, "2002.json",
		`{"bill": {"bill_id": 2002, "title": "Bridge repair", "committee": []}}`)

	backend := newFakeBackend()
	imp := newTestImporter(t, backend)
	_, err := imp.ImportBills(context.Background(), root)
	require.NoError(t, err)

	bill := backend.bills[2002]
	require.NotNil(t, bill)
	assert.Nil(t, bill.CommitteeName)
	assert.Nil(t, bill.LastAction)
	assert.Nil(t, bill.PDFURL)
	assert.Equal(t, "", bill.BillNumber)
}

func TestImportMalformedFileContinues(t *testing.T) {
	root := t.TempDir()
	badPath := writeCorpusFile(t, root, "us", "2025-2026", core.CategoryBill, "a_bad.json", `{not json`)
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryBill, "b_good.json",
		`{"bill": {"bill_id": 2003, "title": "Good bill"}}`)

	backend := newFakeBackend()
	imp := newTestImporter(t, backend)
	summary, err := imp.ImportBills(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed())
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, core.StatusFailed, backend.tracker[badPath])
	assert.Contains(t, backend.bills, int64(2003))

	// Failed files are retried on the next run.
	completed, err := backend.IsCompleted(context.Background(), badPath)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestImportVotesMissingBill(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryPeople, "7.json",
		`{"person": {"people_id": 7, "name": "Alex Doe", "party": "R", "district": "HD-3", "role": "Rep"}}`)
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryBill, "2001.json",
		`{"bill": {"bill_id": 2001, "title": "Water rights"}}`)
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryVote, "a_orphan.json", `{
		"roll_call": {
			"roll_call_id": 3001, "bill_id": 555555, "date": "2025-03-01",
			"yea": 40, "nay": 20, "nv": 0, "absent": 10, "passed": 1,
			"chamber": "H", "chamber_id": 14,
			"votes": [{"people_id": 7, "vote_text": "Yea"}]
		}
	}`)
	votePath := writeCorpusFile(t, root, "us", "2025-2026", core.CategoryVote, "b_ok.json", `{
		"roll_call": {
			"roll_call_id": 3002, "bill_id": 2001, "date": "2025-03-02",
			"yea": 35, "nay": 25, "nv": 0, "absent": 10, "passed": true,
			"chamber": "H", "chamber_id": 14,
			"votes": [
				{"people_id": 7, "vote_text": "Nay"},
				{"people_id": 999, "vote_text": "Yea"}
			]
		}
	}`)

	backend := newFakeBackend()
	imp := newTestImporter(t, backend)
	_, err := imp.ImportSponsors(context.Background(), root)
	require.NoError(t, err)
	_, err = imp.ImportBills(context.Background(), root)
	require.NoError(t, err)

	summary, err := imp.ImportVotes(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed())
	assert.Equal(t, 1, summary.Failed(), "roll call for unimported bill fails its file")

	assert.NotContains(t, backend.rollCalls, int64(3001))
	require.Contains(t, backend.rollCalls, int64(3002))
	assert.True(t, backend.rollCalls[3002].Passed)
	assert.Equal(t, core.VoteNay, backend.votes["3002:7"])
	assert.NotContains(t, backend.votes, "3002:999", "unknown sponsor vote dropped per row")
	assert.Equal(t, core.StatusCompleted, backend.tracker[votePath])
}

func TestImportVotesSkipsUnknownSponsorVotes(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryBill, "2001.json",
		`{"bill": {"bill_id": 2001, "title": "Water rights"}}`)
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryVote, "3002.json", `{
		"roll_call": {
			"roll_call_id": 3002, "bill_id": 2001, "date": "2025-03-02",
			"yea": 1, "nay": 0, "nv": 0, "absent": 0, "passed": 1,
			"chamber": "S", "chamber_id": 15,
			"votes": [{"people_id": 999, "vote_text": "Yea"}]
		}
	}`)

	backend := newFakeBackend()
	imp := newTestImporter(t, backend)
	_, err := imp.ImportBills(context.Background(), root)
	require.NoError(t, err)
	summary, err := imp.ImportVotes(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed(), "unknown sponsor votes do not fail the file")
	assert.Empty(t, backend.votes)
}

func TestPipelineOrder(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryPeople, "7.json",
		`{"person": {"people_id": 7, "name": "Alex Doe", "party": "R", "district": "HD-3", "role": "Rep"}}`)
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryBill, "2001.json",
		`{"bill": {"bill_id": 2001, "title": "Water rights", "sponsors": [{"people_id": 7}]}}`)
	writeCorpusFile(t, root, "us", "2025-2026", core.CategoryVote, "3002.json", `{
		"roll_call": {
			"roll_call_id": 3002, "bill_id": 2001, "date": "2025-03-02",
			"yea": 1, "nay": 0, "nv": 0, "absent": 0, "passed": 1,
			"chamber": "S", "chamber_id": 15,
			"votes": [{"people_id": 7, "vote_text": "Absent"}]
		}
	}`)

	backend := newFakeBackend()
	imp := newTestImporter(t, backend)
	backfilled := false
	pipeline, err := NewPipeline(imp, backfillFunc(func(ctx context.Context) error {
		backfilled = true
		assert.NotEmpty(t, backend.bills, "backfill runs after bills are stored")
		assert.Empty(t, backend.rollCalls, "backfill runs before votes")
		return nil
	}))
	require.NoError(t, err)

	sponsors, bills, votes, err := pipeline.Run(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, backfilled)
	assert.Equal(t, 1, sponsors.Completed())
	assert.Equal(t, 1, bills.Completed())
	assert.Equal(t, 1, votes.Completed())
	assert.True(t, backend.links["2001:7"])
	assert.Equal(t, core.VoteAbsent, backend.votes["3002:7"])
}

// backfillFunc adapts a function to the Backfiller interface.
type backfillFunc func(ctx context.Context) error

func (f backfillFunc) Run(ctx context.Context) error { return f(ctx) }
