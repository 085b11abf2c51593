package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/poiesic/legisearch/core"
)

// personFile is the on-disk shape of a people/*.json source file.
type personFile struct {
	Person struct {
		PeopleID int64  `json:"people_id"`
		Name     string `json:"name"`
		Party    string `json:"party"`
		District string `json:"district"`
		Role     string `json:"role"`
	} `json:"person"`
}

// ImportSponsors walks root/<region>/<session>/people/*.json and
// upserts each legislator, refreshing existing rows in place.
func (imp *Importer) ImportSponsors(ctx context.Context, root string) (*RunSummary, error) {
	if root == "" {
		return nil, ErrRootRequired
	}
	imp.logger.Info("importing sponsors", "root", root)
	summary, err := walkCategory(ctx, root, core.CategoryPeople, imp.backend, imp.logger, imp.processPersonFile)
	if err != nil {
		return summary, err
	}
	imp.logger.Info("sponsor import done",
		"completed", summary.Completed(), "skipped", summary.Skipped(), "failed", summary.Failed())
	return summary, nil
}

func (imp *Importer) processPersonFile(ctx context.Context, file sourceFile) error {
	raw, err := os.ReadFile(file.path)
	if err != nil {
		return err
	}
	var parsed personFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}

	sponsor := &core.Sponsor{
		SponsorID: parsed.Person.PeopleID,
		Name:      parsed.Person.Name,
		Party:     parsed.Person.Party,
		District:  parsed.Person.District,
		Role:      parsed.Person.Role,
	}
	return imp.backend.UpsertSponsor(ctx, sponsor)
}
