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

// Package embedding bulk-populates missing vectors for bills and value
// rows.
//
// Each run drops the target's ANN index, claims batches of unembedded
// rows with FOR UPDATE SKIP LOCKED, embeds each batch in parallel
// through a bounded worker pool, writes the vectors back inside the
// claiming transaction, and rebuilds the index when the backlog is
// empty. The skip-locked claim makes concurrent runs safe: each row is
// embedded by exactly one worker.
//
// A failed index rebuild surfaces as ErrIndexRebuild after retries;
// the embeddings themselves stay committed.
package embedding
