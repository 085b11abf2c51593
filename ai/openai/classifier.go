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
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/legisearch/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Classifier implements ai.Classifier using OpenAI-compatible chat APIs.
// When the model is unreachable or keeps returning malformed output it
// falls back to keyword-rule classification so imports never stall on a
// flaky classifier service.
type Classifier struct {
	client        llms.Model
	maxCategories int
	logger        *slog.Logger
}

// ranked is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type ranked struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// classification is the wrapper structure for the LLM's JSON response.
type classification struct {
	Categories []ranked `json:"categories"`
}

// categoryKeywords drives the rule-based fallback.
var categoryKeywords = map[string][]string{
	"Healthcare":      {"health", "medical", "hospital", "medicare", "medicaid"},
	"Education":       {"education", "school", "student", "teacher", "learning"},
	"Infrastructure":  {"infrastructure", "road", "bridge", "transportation", "construction"},
	"Environment":     {"environment", "climate", "pollution", "energy", "conservation"},
	"Finance":         {"finance", "tax", "budget", "banking", "investment"},
	"Technology":      {"technology", "digital", "internet", "cyber", "data"},
	"Social Services": {"welfare", "social", "community", "housing", "assistance"},
}

// newClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClassifier(config *ai.Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken("none"),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		client:        client,
		maxCategories: config.MaxCategories,
		logger:        slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewClassifier creates a new bill classifier using the provided configuration.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config)
}

// ClassifyBill assigns topical categories to a bill via zero-shot LLM
// classification, keeping the top-scored categories.
func (c *Classifier) ClassifyBill(ctx context.Context, title, description string) ([]string, error) {
	text := scrubString(title + "\n" + description)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(classifierSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result classification
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Warn("classifier model unavailable, using keyword fallback", "attempt", attempt+1, "err", err)
			return c.keywordClassify(title, description), nil
		}

		if len(response.Choices) < 1 {
			c.logger.Debug("no choices returned from model")
			return c.keywordClassify(title, description), nil
		}

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(response.Choices[0].Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		c.logger.Warn("classifier kept returning malformed output, using keyword fallback", "err", lastErr)
		return c.keywordClassify(title, description), nil
	}

	// Keep only known categories, best score first.
	slices.SortFunc(result.Categories, func(a, b ranked) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	categories := make([]string, 0, c.maxCategories)
	for _, r := range result.Categories {
		if !slices.Contains(ai.BillCategories, r.Category) {
			c.logger.Debug("dropping unknown category", "category", r.Category)
			continue
		}
		categories = append(categories, r.Category)
		if len(categories) == c.maxCategories {
			break
		}
	}

	if len(categories) == 0 {
		return []string{ai.CategoryOther}, nil
	}
	return categories, nil
}

// keywordClassify matches bill text against fixed keyword lists.
func (c *Classifier) keywordClassify(title, description string) []string {
	text := strings.ToLower(title + " " + description)

	var categories []string
	for _, category := range ai.BillCategories {
		words, ok := categoryKeywords[category]
		if !ok {
			continue
		}
		for _, word := range words {
			if strings.Contains(text, word) {
				categories = append(categories, category)
				break
			}
		}
		if len(categories) == c.maxCategories {
			break
		}
	}

	if len(categories) == 0 {
		return []string{ai.CategoryOther}
	}
	return categories
}
