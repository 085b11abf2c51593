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
)

// Backfiller embeds everything still missing a vector. The embedding
// package provides the production implementation.
type Backfiller interface {
	Run(ctx context.Context) error
}

// Pipeline runs a full corpus import in dependency order: sponsors
// before bills so sponsor links resolve, bill embeddings before votes
// so a vote run never waits on an embedding backlog.
type Pipeline struct {
	importer   *Importer
	backfiller Backfiller
}

// NewPipeline wires an importer and an optional bill-embedding
// backfiller. A nil backfiller skips the embedding stage.
func NewPipeline(importer *Importer, backfiller Backfiller) (*Pipeline, error) {
	if importer == nil {
		return nil, ErrBackendRequired
	}
	return &Pipeline{importer: importer, backfiller: backfiller}, nil
}

// Run executes the full import. Per-file failures are aggregated in the
// returned summaries; only infrastructure failures abort the run.
func (p *Pipeline) Run(ctx context.Context, root string) (sponsors, bills, votes *RunSummary, err error) {
	sponsors, err = p.importer.ImportSponsors(ctx, root)
	if err != nil {
		return sponsors, nil, nil, fmt.Errorf("sponsor import: %w", err)
	}
	bills, err = p.importer.ImportBills(ctx, root)
	if err != nil {
		return sponsors, bills, nil, fmt.Errorf("bill import: %w", err)
	}
	if p.backfiller != nil {
		if err = p.backfiller.Run(ctx); err != nil {
			return sponsors, bills, nil, fmt.Errorf("embedding backfill: %w", err)
		}
	}
	votes, err = p.importer.ImportVotes(ctx, root)
	if err != nil {
		return sponsors, bills, votes, fmt.Errorf("vote import: %w", err)
	}
	return sponsors, bills, votes, nil
}
