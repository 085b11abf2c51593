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

package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"github.com/poiesic/legisearch/storage"
)

const (
	// tokenizerModel selects the tokenizer family used for the result
	// budget. Results are consumed by a gpt-4-family model downstream.
	tokenizerModel = "gpt-4"

	// DefaultTokenBudget caps the combined token count of all result
	// sets returned from one ExecuteSelects call.
	DefaultTokenBudget = 10000
)

// TokenCounter counts model tokens in text.
type TokenCounter func(text string) (int, error)

// Gate executes validated read-only SQL and enforces a result token
// budget. Statements that are not single SELECTs never reach the
// database.
type Gate struct {
	exec   storage.Executor
	budget int
	count  TokenCounter
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithBudget overrides the result token budget.
func WithBudget(budget int) Option {
	return func(g *Gate) {
		if budget > 0 {
			g.budget = budget
		}
	}
}

// WithTokenCounter overrides the token counter. Useful in tests.
func WithTokenCounter(count TokenCounter) Option {
	return func(g *Gate) {
		if count != nil {
			g.count = count
		}
	}
}

// WithLogger overrides the gate's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger.With("component", "query")
		}
	}
}

// NewGate creates a query gate over exec. Unless overridden, results
// are counted with the gpt-4 tokenizer.
func NewGate(exec storage.Executor, opts ...Option) (*Gate, error) {
	if exec == nil {
		return nil, ErrExecutorRequired
	}
	g := &Gate{
		exec:   exec,
		budget: DefaultTokenBudget,
		logger: slog.Default().With("component", "query"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.count == nil {
		encoder, err := tiktoken.EncodingForModel(tokenizerModel)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer: %w", err)
		}
		g.count = func(text string) (int, error) {
			return len(encoder.Encode(text, nil, nil)), nil
		}
	}
	return g, nil
}

// ExecuteSelects validates and runs statements in order, returning
// one JSON result array per statement. The whole batch is rejected if
// any statement is not a single SELECT, and discarded if the combined
// results exceed the token budget. Execution failures return
// ErrQueryFailed with the cause logged, not returned.
func (g *Gate) ExecuteSelects(ctx context.Context, statements []string) ([]string, error) {
	if len(statements) == 0 {
		return nil, ErrEmptyStatement
	}
	for _, statement := range statements {
		if err := ValidateReadOnly(statement); err != nil {
			g.logger.Warn("statement rejected", "kind", Classify(statement).String(), "err", err)
			return nil, err
		}
	}

	results := make([]string, 0, len(statements))
	used := 0
	for _, statement := range statements {
		payload, err := g.exec.QueryJSON(ctx, statement)
		if err != nil {
			g.logger.Error("query execution failed", "err", err)
			return nil, ErrQueryFailed
		}
		tokens, err := g.count(payload)
		if err != nil {
			g.logger.Error("token count failed", "err", err)
			return nil, ErrQueryFailed
		}
		used += tokens
		if used > g.budget {
			g.logger.Warn("result over token budget", "tokens", used, "budget", g.budget)
			return nil, ErrResultTooLarge
		}
		results = append(results, payload)
	}
	return results, nil
}
