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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/poiesic/legisearch/ai"
	"github.com/poiesic/legisearch/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// tableNamePattern is the allow-list for inferred identifiers. Inferred
// names are interpolated into DDL, so anything outside this shape is
// rejected outright rather than sanitized.
var tableNamePattern = regexp.MustCompile(`^voter_[a-z][a-z0-9_]*$`)

// columnNamePattern allow-lists inferred column identifiers.
var columnNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// SchemaInferrer implements ai.SchemaInferrer using OpenAI-compatible chat APIs.
type SchemaInferrer struct {
	client llms.Model
	logger *slog.Logger
}

// newSchemaInferrer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSchemaInferrer(config *ai.Config) (*SchemaInferrer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken("none"),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &SchemaInferrer{
		client: client,
		logger: slog.Default().With("component", "openai-inferrer"),
	}, nil
}

// NewSchemaInferrer creates a new schema inferrer using the provided
// configuration.
//
// Returns ai.SchemaInferrer interface to enforce abstraction.
func NewSchemaInferrer(config *ai.Config) (ai.SchemaInferrer, error) {
	return newSchemaInferrer(config)
}

// InferTableSchema asks the model for a table name, summary and column
// types describing the sampled records, then verifies every identifier
// against the allow-list before anything reaches a DDL string.
func (s *SchemaInferrer) InferTableSchema(ctx context.Context, fileName string, sample []string, excludeTableNames []string) (*core.TableInfo, error) {
	if len(sample) == 0 {
		return nil, fmt.Errorf("schema inference requires at least one sample record")
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(inferrerSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(inferrerPrompt(fileName, sample, excludeTableNames)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var info core.TableInfo
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			s.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			return nil, fmt.Errorf("no choices returned from schema inference model")
		}

		responseText := strings.TrimSpace(response.Choices[0].Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &info); err != nil {
			lastErr = err
			s.logger.Warn("error parsing schema inference response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		s.logger.Error("failed to parse schema inference response after retries", "err", lastErr)
		return nil, lastErr
	}

	if err := validateTableInfo(&info, excludeTableNames); err != nil {
		return nil, err
	}
	return &info, nil
}

// validateTableInfo rejects inferred schemas whose identifiers or column
// types could not be safely interpolated into DDL.
func validateTableInfo(info *core.TableInfo, excludeTableNames []string) error {
	if !tableNamePattern.MatchString(info.TableName) {
		return fmt.Errorf("inferred table name %q is not an allowed identifier", info.TableName)
	}
	if slices.Contains(excludeTableNames, info.TableName) {
		return fmt.Errorf("inferred table name %q collides with an existing table", info.TableName)
	}
	if len(info.Columns) == 0 {
		return fmt.Errorf("inferred schema for %q has no columns", info.TableName)
	}
	for name, col := range info.Columns {
		if !columnNamePattern.MatchString(name) {
			return fmt.Errorf("inferred column name %q is not an allowed identifier", name)
		}
		switch strings.ToUpper(col.Type) {
		case "VARCHAR", "TIMESTAMP":
		default:
			return fmt.Errorf("inferred column %q has unsupported type %q", name, col.Type)
		}
	}
	return nil
}
