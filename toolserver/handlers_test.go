package toolserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/query"
)

type fakeRetriever struct {
	candidates []*core.SchemaCandidate
	err        error
	lastInput  string
	lastTopK   int
}

func (f *fakeRetriever) SchemaCandidates(ctx context.Context, userInput string, topK int) ([]*core.SchemaCandidate, error) {
	f.lastInput = userInput
	f.lastTopK = topK
	return f.candidates, f.err
}

type fakeGate struct {
	results []string
	err     error
}

func (f *fakeGate) ExecuteSelects(ctx context.Context, statements []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestServer(t *testing.T, retriever *fakeRetriever, gate *fakeGate) *Server {
	t.Helper()
	if retriever == nil {
		retriever = &fakeRetriever{}
	}
	if gate == nil {
		gate = &fakeGate{}
	}
	s, err := NewServer(retriever, gate)
	require.NoError(t, err)
	return s
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestSchemaCandidatesEndpoint(t *testing.T) {
	retriever := &fakeRetriever{candidates: []*core.SchemaCandidate{
		{DDL: "CREATE TABLE voter_registration (county VARCHAR)", PossibleColumnValues: []string{`{"county": "Hays"}`}},
	}}
	s := newTestServer(t, retriever, nil)

	rec := doJSON(s, http.MethodPost, "/tools/schema-candidates", `{"userInput": "voters in hays", "topK": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schemaCandidatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Candidates, 1)
	assert.Contains(t, resp.Candidates[0].DDL, "voter_registration")
	assert.Equal(t, []string{`{"county": "Hays"}`}, resp.Candidates[0].PossibleColumnValues)
	assert.Equal(t, "voters in hays", retriever.lastInput)
	assert.Equal(t, 2, retriever.lastTopK)
}

func TestSchemaCandidatesRequiresInput(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doJSON(s, http.MethodPost, "/tools/schema-candidates", `{"userInput": "  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestSchemaCandidatesLookupFailure(t *testing.T) {
	retriever := &fakeRetriever{err: assert.AnError}
	s := newTestServer(t, retriever, nil)

	rec := doJSON(s, http.MethodPost, "/tools/schema-candidates", `{"userInput": "anything"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "schema lookup failed", resp.Error, "internal cause is not exposed")
}

func TestExecuteSelectsEndpoint(t *testing.T) {
	gate := &fakeGate{results: []string{`[{"title": "Water Act"}]`}}
	s := newTestServer(t, nil, gate)

	rec := doJSON(s, http.MethodPost, "/tools/execute-selects", `{"selects": ["SELECT title FROM bills"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results": [[{"title": "Water Act"}]]}`, rec.Body.String())
}

func TestExecuteSelectsRejectedStatement(t *testing.T) {
	gate := &fakeGate{err: query.ErrNotSelect}
	s := newTestServer(t, nil, gate)

	rec := doJSON(s, http.MethodPost, "/tools/execute-selects", `{"selects": ["DROP TABLE bills"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "SELECT")
}

func TestExecuteSelectsOverBudget(t *testing.T) {
	gate := &fakeGate{err: query.ErrResultTooLarge}
	s := newTestServer(t, nil, gate)

	rec := doJSON(s, http.MethodPost, "/tools/execute-selects", `{"selects": ["SELECT * FROM bills"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "too large")
}

func TestExecuteSelectsExecutionFailure(t *testing.T) {
	gate := &fakeGate{err: query.ErrQueryFailed}
	s := newTestServer(t, nil, gate)

	rec := doJSON(s, http.MethodPost, "/tools/execute-selects", `{"selects": ["SELECT 1"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t, nil, nil)

	for _, path := range []string{"/tools/schema-candidates", "/tools/execute-selects"} {
		rec := doJSON(s, http.MethodPost, path, `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path: %s", path)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "invalid request body", resp.Error)
	}
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(nil, &fakeGate{})
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	_, err = NewServer(&fakeRetriever{}, nil)
	assert.ErrorIs(t, err, ErrGateRequired)
}
