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

// Package storage provides the storage abstraction layer for legisearch.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. The ingestion, embedding,
// retrieval and query packages all depend on these interfaces only;
// the storage/postgres package provides the production implementation.
//
// # Constructor Return Type Pattern
//
// Public constructors of implementation packages return the
// storage.Backend interface rather than concrete types:
//
//	backend, err := postgres.NewBackend(ctx, cfg) // returns storage.Backend
//
// This keeps consumers decoupled from Postgres specifics and lets
// tests substitute in-memory fakes without modification.
//
// # Repositories
//
//   - TrackerRepository: per-file ingestion progress
//   - SponsorRepository, BillRepository, RollCallRepository:
//     relational legislative data plus bill vector search
//   - SchemaRepository, ValueRepository: dynamically created value
//     tables, their DDL documents and row embeddings
//   - Executor: read-only statement execution for the query gate
//
// # Transaction Boundaries
//
// Batch-claim operations (BackfillBatch, BackfillValueBatch) own their
// transaction: the claim, the caller-supplied embedding callback, and
// the write-back all happen within one transaction so that concurrent
// workers never claim the same row.
//
// # Thread Safety
//
// All Backend implementations must be safe for concurrent use from
// multiple goroutines.
package storage
