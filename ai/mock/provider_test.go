package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/legisearch/ai"
)

// The compiler enforces the full ai.Provider surface.
var _ ai.Provider = (*MockProvider)(nil)

func TestMockProviderServices(t *testing.T) {
	provider := NewMockProvider()

	require.NotNil(t, provider.Embedder())
	require.NotNil(t, provider.Classifier())
	require.NotNil(t, provider.SchemaInferrer())

	vector, err := provider.Embedder().EmbedText(context.Background(), "water conservation")
	require.NoError(t, err)
	assert.Len(t, vector, 384)

	categories, err := provider.Classifier().ClassifyBill(context.Background(), "School funding", "Funding for public education")
	require.NoError(t, err)
	assert.NotEmpty(t, categories)

	assert.NoError(t, provider.Close())
}

func TestMockProviderWithServices(t *testing.T) {
	embedder := NewMockEmbedder()
	classifier := NewMockClassifier()
	inferrer := NewMockSchemaInferrer()

	provider := NewMockProviderWithServices(embedder, classifier, inferrer)

	concrete, ok := provider.(*MockProvider)
	require.True(t, ok)
	assert.Same(t, embedder, concrete.GetMockEmbedder())
	assert.Same(t, classifier, concrete.GetMockClassifier())
	assert.Same(t, inferrer, concrete.GetMockInferrer())

	_, err := provider.Embedder().EmbedText(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount())
}
