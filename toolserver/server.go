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

package toolserver

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/poiesic/legisearch/core"
)

// SchemaRetriever serves schema-candidate lookups.
type SchemaRetriever interface {
	SchemaCandidates(ctx context.Context, userInput string, topK int) ([]*core.SchemaCandidate, error)
}

// SelectExecutor runs validated read-only SQL batches.
type SelectExecutor interface {
	ExecuteSelects(ctx context.Context, statements []string) ([]string, error)
}

// Server exposes the agent tool boundary over HTTP. Every response is
// JSON; failures use a uniform {"error": "..."} shape so callers never
// see a transport-level exception.
type Server struct {
	echo      *echo.Echo
	retriever SchemaRetriever
	gate      SelectExecutor
	logger    *slog.Logger
}

// NewServer creates the tool server over retriever and gate.
func NewServer(retriever SchemaRetriever, gate SelectExecutor) (*Server, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if gate == nil {
		return nil, ErrGateRequired
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		retriever: retriever,
		gate:      gate,
		logger:    slog.Default().With("component", "toolserver"),
	}

	e.POST("/tools/schema-candidates", s.handleSchemaCandidates)
	e.POST("/tools/execute-selects", s.handleExecuteSelects)
	e.GET("/healthz", s.handleHealth)

	return s, nil
}

// Start serves HTTP on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.logger.Info("tool server listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
