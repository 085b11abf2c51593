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

// Package ingestion imports a legislative corpus laid out as
// root/<region>/<session>/<category>/*.json, where category is one of
// bill, vote or people.
//
// Every file runs through the process tracker: completed files are
// skipped on re-runs, so an interrupted import resumes exactly where it
// stopped. A file that fails to parse or store is marked failed and the
// walk continues; dependent rows (sponsor links, individual votes) that
// hit foreign key violations are logged and dropped per row without
// failing their file.
//
// Pipeline runs the stages in dependency order: sponsors, bills (with
// category classification), bill embedding backfill, then votes.
package ingestion
