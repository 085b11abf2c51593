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

// Package postgres implements storage.Backend on PostgreSQL with the
// pgvector extension.
//
// All fixed tables live in one configurable schema. Vector columns use
// cosine distance with HNSW indexes (m=8, ef_construction=32); bulk
// embedding runs drop the index before writing and rebuild it after.
//
// Value tables are created dynamically from inferred schemas. Their
// names and column names are validated against a strict identifier
// pattern before any interpolation into SQL; everything else goes
// through bound parameters.
//
// Batch-claim methods (BackfillBatch, BackfillValueBatch) use
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers partition the
// backlog without coordination.
package postgres
