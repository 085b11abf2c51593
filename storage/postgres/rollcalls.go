package postgres

import (
	"context"
	"fmt"

	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

// UpsertRollCall inserts or refreshes a roll call by external id.
// A vote on a bill that was never imported surfaces as
// storage.ErrForeignKey; the caller decides whether to skip or abort.
func (b *Backend) UpsertRollCall(ctx context.Context, rollCall *core.RollCall) error {
	if err := core.ValidateRollCall(rollCall); err != nil {
		return err
	}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (roll_call_id, bill_id, date, yea, nay, nv, absent,
			passed, chamber, chamber_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (roll_call_id) DO UPDATE SET
			bill_id = EXCLUDED.bill_id,
			date = EXCLUDED.date,
			yea = EXCLUDED.yea,
			nay = EXCLUDED.nay,
			nv = EXCLUDED.nv,
			absent = EXCLUDED.absent,
			passed = EXCLUDED.passed,
			chamber = EXCLUDED.chamber,
			chamber_id = EXCLUDED.chamber_id,
			updated_at = now()`,
		b.qualified("roll_calls"),
	)
	_, err := b.pool.Exec(ctx, stmt,
		rollCall.RollCallID, rollCall.BillID, rollCall.Date,
		rollCall.Yea, rollCall.Nay, rollCall.NV, rollCall.Absent,
		rollCall.Passed, rollCall.Chamber, rollCall.ChamberID,
	)
	if err != nil {
		if isForeignKeyErr(err) {
			return fmt.Errorf("roll call %d references bill %d: %w", rollCall.RollCallID, rollCall.BillID, storage.ErrForeignKey)
		}
		return fmt.Errorf("upserting roll call %d: %w", rollCall.RollCallID, err)
	}
	return nil
}

// UpsertVote records one legislator's vote on a roll call.
func (b *Backend) UpsertVote(ctx context.Context, vote *core.RollCallVote) error {
	if !vote.Vote.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidVoteValue, vote.Vote)
	}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (roll_call_id, sponsor_id, vote)
		VALUES ($1, $2, $3)
		ON CONFLICT (roll_call_id, sponsor_id) DO UPDATE SET
			vote = EXCLUDED.vote`,
		b.qualified("roll_call_votes"),
	)
	if _, err := b.pool.Exec(ctx, stmt, vote.RollCallID, vote.SponsorID, vote.Vote); err != nil {
		if isForeignKeyErr(err) {
			return fmt.Errorf("vote by sponsor %d on roll call %d: %w", vote.SponsorID, vote.RollCallID, storage.ErrForeignKey)
		}
		return fmt.Errorf("upserting vote by sponsor %d on roll call %d: %w", vote.SponsorID, vote.RollCallID, err)
	}
	return nil
}
