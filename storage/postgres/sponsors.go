package postgres

import (
	"context"
	"fmt"

	"github.com/poiesic/legisearch/core"
)

// UpsertSponsor inserts or refreshes a legislator by external id.
func (b *Backend) UpsertSponsor(ctx context.Context, sponsor *core.Sponsor) error {
	if err := core.ValidateSponsor(sponsor); err != nil {
		return err
	}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (sponsor_id, name, party, district, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sponsor_id) DO UPDATE SET
			name = EXCLUDED.name,
			party = EXCLUDED.party,
			district = EXCLUDED.district,
			role = EXCLUDED.role,
			updated_at = now()`,
		b.qualified("sponsors"),
	)
	if _, err := b.pool.Exec(ctx, stmt, sponsor.SponsorID, sponsor.Name, sponsor.Party, sponsor.District, sponsor.Role); err != nil {
		return fmt.Errorf("upserting sponsor %d: %w", sponsor.SponsorID, err)
	}
	return nil
}
