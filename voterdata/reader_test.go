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
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderHeaderAndBatches(t *testing.T) {
	input := strings.Join([]string{
		"first_name|last_name|registration_date",
		"Ada|Lovelace|2020-01-15",
		"Grace|Hopper|2019-06-30",
		"Alan|Turing|2021-11-02",
	}, "\n")

	reader, err := NewReader(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name", "last_name", "registration_date"}, reader.Header())

	batch, err := reader.NextBatch(2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, []string{"Ada", "Lovelace", "2020-01-15"}, batch[0])

	batch, err = reader.NextBatch(2)
	assert.ErrorIs(t, err, io.EOF)
	require.Len(t, batch, 1)
	assert.Equal(t, "Turing", batch[0][1])
}

func TestReaderSkipsArityMismatches(t *testing.T) {
	input := strings.Join([]string{
		"a|b|c",
		"1|2|3",
		"1|2",
		"1|2|3|4",
		"4|5|6",
	}, "\n")

	reader, err := NewReader(strings.NewReader(input), nil)
	require.NoError(t, err)

	batch, err := reader.NextBatch(10)
	if err != nil {
		assert.ErrorIs(t, err, io.EOF)
	}
	assert.Len(t, batch, 2)
	assert.Equal(t, 2, reader.Skipped())
}

func TestReaderTrimsWhitespace(t *testing.T) {
	input := " name | county \n Ada | Lane \n"
	reader, err := NewReader(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "county"}, reader.Header())

	batch, err := reader.NextBatch(1)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatal(err)
	}
	require.Len(t, batch, 1)
	assert.Equal(t, []string{"Ada", "Lane"}, batch[0])
}

func TestReaderEmptyInput(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), nil)
	assert.Error(t, err)
}

func TestSanitizeColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"First Name", "first_name"},
		{"COUNTY", "county"},
		{"reg-date", "reg_date"},
		{"2nd_address", "col_2nd_address"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeColumn(tt.in), tt.in)
	}
}
