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

package embedding

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Reporter tracks and reports backfill progress. Named distinctly from
// the ingestion file tracker; this one only narrates, it never gates.
type Reporter struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewReporter creates a progress reporter writing to writer (typically
// os.Stderr), reporting every reportInterval processed items.
func NewReporter(writer io.Writer, total, reportInterval int) *Reporter {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &Reporter{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking. Resets any previous progress.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startTime = time.Now()
	r.started = true
	r.current = 0
	r.lastReported = 0
}

// Increment advances progress by delta and reports when a report
// interval is crossed.
func (r *Reporter) Increment(delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	r.current += delta
	if r.current > r.total {
		r.current = r.total
	}
	if r.current-r.lastReported >= r.reportInterval {
		r.report()
		r.lastReported = r.current
	}
}

// Finish reports the final count and elapsed time.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	elapsed := time.Since(r.startTime).Round(time.Second)
	fmt.Fprintf(r.writer, "done: %d/%d in %s\n", r.current, r.total, elapsed)
	r.started = false
}

// report assumes the lock is held.
func (r *Reporter) report() {
	elapsed := time.Since(r.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(r.current) / elapsed.Seconds()
	}
	remaining := ""
	if rate > 0 && r.current < r.total {
		eta := time.Duration(float64(r.total-r.current)/rate) * time.Second
		remaining = fmt.Sprintf(", eta %s", eta.Round(time.Second))
	}
	fmt.Fprintf(r.writer, "progress: %d/%d (%.1f/s%s)\n", r.current, r.total, rate, remaining)
}
