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
	"github.com/poiesic/legisearch/core"
)

// FileResult records the outcome of one source file.
type FileResult struct {
	Path     string
	Category core.FileCategory
	Region   string
	Session  string
	Status   core.Status

	// Skipped marks files left untouched because a previous run
	// already completed them.
	Skipped bool

	Err error
}

// RunSummary aggregates the per-file results of one import run.
// Per-file failures are recorded here rather than aborting the run; the
// caller decides what a tolerable failure rate is.
type RunSummary struct {
	Results []FileResult
}

func (s *RunSummary) add(result FileResult) {
	s.Results = append(s.Results, result)
}

// Completed returns the number of files processed to completion in this
// run, not counting files skipped as already done.
func (s *RunSummary) Completed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == core.StatusCompleted && !r.Skipped {
			n++
		}
	}
	return n
}

// Failed returns the number of files that failed in this run.
func (s *RunSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == core.StatusFailed {
			n++
		}
	}
	return n
}

// Skipped returns the number of files skipped because a previous run
// already completed them.
func (s *RunSummary) Skipped() int {
	n := 0
	for _, r := range s.Results {
		if r.Skipped {
			n++
		}
	}
	return n
}
