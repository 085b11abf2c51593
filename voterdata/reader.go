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

package voterdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Reader streams a pipe-delimited extract row by row. The first record
// is the header; rows whose field count does not match the header are
// skipped and counted rather than failing the file.
type Reader struct {
	csv     *csv.Reader
	header  []string
	line    int
	skipped int
	logger  *slog.Logger
}

// NewReader wraps r and consumes the header record.
func NewReader(r io.Reader, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}
	return &Reader{
		csv:    cr,
		header: header,
		line:   1,
		logger: logger.With("component", "voterdata"),
	}, nil
}

// Header returns the trimmed header fields.
func (r *Reader) Header() []string {
	return r.header
}

// Skipped returns the number of rows dropped for arity mismatches so
// far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// NextBatch reads up to size valid rows. It returns io.EOF together
// with any final partial batch once the input is exhausted.
func (r *Reader) NextBatch(size int) ([][]string, error) {
	batch := make([][]string, 0, size)
	for len(batch) < size {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return batch, io.EOF
		}
		if err != nil {
			return batch, fmt.Errorf("reading line %d: %w", r.line+1, err)
		}
		r.line++
		if len(record) != len(r.header) {
			r.skipped++
			r.logger.Warn("skipping row with mismatched field count",
				"line", r.line, "fields", len(record), "expected", len(r.header))
			continue
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		batch = append(batch, record)
	}
	return batch, nil
}
