package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/legisearch/ai/mock"
	"github.com/poiesic/legisearch/core"
	"github.com/poiesic/legisearch/storage"
)

// fakeStore stubs the retrieval slice of the backend. Unimplemented
// methods panic through the embedded nil interfaces.
type fakeStore struct {
	storage.SchemaRepository
	storage.BillRepository
	storage.ValueRepository

	docs       []*core.SchemaDocument
	values     map[string][]*core.ValueRecord
	valuesErr  error
	similar    []*core.SimilarBill
	lastSearch struct {
		minSimilarity float32
		limit         int
		table         string
		maxDistance   float32
	}
}

func (f *fakeStore) SearchChunks(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SchemaDocument, error) {
	f.lastSearch.minSimilarity = minSimilarity
	f.lastSearch.limit = limit
	if limit > len(f.docs) {
		limit = len(f.docs)
	}
	return f.docs[:limit], nil
}

func (f *fakeStore) SearchValues(ctx context.Context, tableName string, vector []float32, minSimilarity float32, limit int) ([]*core.ValueRecord, error) {
	f.lastSearch.table = tableName
	if f.valuesErr != nil {
		return nil, f.valuesErr
	}
	return f.values[tableName], nil
}

func (f *fakeStore) SimilarByVector(ctx context.Context, vector []float32, maxDistance float32, limit int) ([]*core.SimilarBill, error) {
	f.lastSearch.maxDistance = maxDistance
	f.lastSearch.limit = limit
	return f.similar, nil
}

func registrationDDL() string {
	info := &core.TableInfo{
		TableName: "voter_registration",
		Summary:   "Registered voters by county",
		Columns: map[string]core.ColumnInfo{
			"county": {Type: "VARCHAR", Description: "county name"},
		},
	}
	return info.CreateTableDDL()
}

func TestSchemaCandidates(t *testing.T) {
	store := &fakeStore{
		docs: []*core.SchemaDocument{
			{TableName: "voter_registration", TableDDL: registrationDDL(), Updated: time.Now()},
			{TableName: "voter_history", TableDDL: "CREATE TABLE voter_history (id VARCHAR)"},
		},
		values: map[string][]*core.ValueRecord{
			"voter_registration_embedding": {
				{PID: 1, JSONString: `{"county": "Hays"}`},
				{PID: 2, JSONString: `{"county": "Travis"}`},
			},
		},
	}
	r, err := NewRetriever(store, mock.NewMockEmbedder(), nil)
	require.NoError(t, err)

	candidates, err := r.SchemaCandidates(context.Background(), "voters in hays county", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, registrationDDL(), candidates[0].DDL)
	assert.Equal(t, []string{`{"county": "Hays"}`, `{"county": "Travis"}`}, candidates[0].PossibleColumnValues)
	assert.Empty(t, candidates[1].PossibleColumnValues)

	assert.Equal(t, float32(0.15), store.lastSearch.minSimilarity)
	assert.Equal(t, 2, store.lastSearch.limit)
}

func TestSchemaCandidatesExplicitTopK(t *testing.T) {
	store := &fakeStore{
		docs: []*core.SchemaDocument{
			{TableName: "voter_registration", TableDDL: registrationDDL()},
		},
	}
	r, err := NewRetriever(store, mock.NewMockEmbedder(), nil)
	require.NoError(t, err)

	_, err = r.SchemaCandidates(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, store.lastSearch.limit)
}

func TestSchemaCandidatesValueLookupFailureTolerated(t *testing.T) {
	store := &fakeStore{
		docs: []*core.SchemaDocument{
			{TableName: "voter_registration", TableDDL: registrationDDL()},
		},
		valuesErr: errors.New("index missing"),
	}
	r, err := NewRetriever(store, mock.NewMockEmbedder(), nil)
	require.NoError(t, err)

	candidates, err := r.SchemaCandidates(context.Background(), "anything", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Empty(t, candidates[0].PossibleColumnValues)
}

func TestValueLookup(t *testing.T) {
	store := &fakeStore{
		values: map[string][]*core.ValueRecord{
			"voter_registration_embedding": {{PID: 9, JSONString: `{"county": "Bexar"}`}},
		},
	}
	r, err := NewRetriever(store, mock.NewMockEmbedder(), nil)
	require.NoError(t, err)

	values, err := r.ValueLookup(context.Background(), registrationDDL(), "bexar county")
	require.NoError(t, err)
	assert.Equal(t, []string{`{"county": "Bexar"}`}, values)
	assert.Equal(t, "voter_registration_embedding", store.lastSearch.table)
}

func TestValueLookupBadDDL(t *testing.T) {
	r, err := NewRetriever(&fakeStore{}, mock.NewMockEmbedder(), nil)
	require.NoError(t, err)

	_, err = r.ValueLookup(context.Background(), "SELECT 1", "anything")
	assert.ErrorIs(t, err, ErrNoTableName)
}

func TestSimilarBillsUsesConfiguredThresholds(t *testing.T) {
	store := &fakeStore{
		similar: []*core.SimilarBill{{BillNumber: "HB 42", Similarity: 0.91}},
	}
	r, err := NewRetriever(store, mock.NewMockEmbedder(), nil)
	require.NoError(t, err)

	bills, err := r.SimilarBills(context.Background(), "water conservation")
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "HB 42", bills[0].BillNumber)
	assert.Equal(t, float32(0.8), store.lastSearch.maxDistance)
	assert.Equal(t, 10, store.lastSearch.limit)
}

func TestNewRetrieverValidation(t *testing.T) {
	_, err := NewRetriever(nil, mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrBackendRequired)

	_, err = NewRetriever(&fakeStore{}, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
