package toolserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/poiesic/legisearch/query"
)

type errorResponse struct {
	Error string `json:"error"`
}

type schemaCandidatesRequest struct {
	UserInput string `json:"userInput"`
	TopK      int    `json:"topK"`
}

type schemaCandidate struct {
	DDL                  string   `json:"ddl"`
	PossibleColumnValues []string `json:"possibleColumnValues"`
}

type schemaCandidatesResponse struct {
	Candidates []schemaCandidate `json:"candidates"`
}

type executeSelectsRequest struct {
	Selects []string `json:"selects"`
}

type executeSelectsResponse struct {
	Results []json.RawMessage `json:"results"`
}

func (s *Server) handleSchemaCandidates(c echo.Context) error {
	var req schemaCandidatesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.UserInput) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "userInput is required"})
	}

	candidates, err := s.retriever.SchemaCandidates(c.Request().Context(), req.UserInput, req.TopK)
	if err != nil {
		s.logger.Error("schema candidate lookup failed", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "schema lookup failed"})
	}

	resp := schemaCandidatesResponse{Candidates: make([]schemaCandidate, 0, len(candidates))}
	for _, candidate := range candidates {
		resp.Candidates = append(resp.Candidates, schemaCandidate{
			DDL:                  candidate.DDL,
			PossibleColumnValues: candidate.PossibleColumnValues,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExecuteSelects(c echo.Context) error {
	var req executeSelectsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	results, err := s.gate.ExecuteSelects(c.Request().Context(), req.Selects)
	if err != nil {
		return c.JSON(statusForQueryError(err), errorResponse{Error: err.Error()})
	}

	resp := executeSelectsResponse{Results: make([]json.RawMessage, 0, len(results))}
	for _, result := range results {
		resp.Results = append(resp.Results, json.RawMessage(result))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// statusForQueryError maps gate sentinels to HTTP statuses. Rejected
// input is the caller's fault; execution failure is ours.
func statusForQueryError(err error) int {
	switch {
	case errors.Is(err, query.ErrNotSelect),
		errors.Is(err, query.ErrMultiStatement),
		errors.Is(err, query.ErrEmptyStatement),
		errors.Is(err, query.ErrResultTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
