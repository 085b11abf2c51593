package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/legisearch/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxEmbedBatchSize bounds how many chunks go to the embedding API in one
// call.
const maxEmbedBatchSize = 2048

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Long inputs are chunk-split and averaged into one vector per input.
type Embedder struct {
	embedder     embeddings.Embedder
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for embeddings
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:     embedder,
		chunkSize:    config.ChunkSize,
		chunkOverlap: config.ChunkOverlap,
		logger:       slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings.
// Each text is split into overlapping windows; all windows across the
// whole batch are embedded in bounded API batches, then mapped back to
// their source text and averaged element-wise into one vector per text.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	// Split every text and remember which chunk range belongs to it.
	type span struct{ start, end int }
	spans := make([]span, len(texts))
	var allChunks []string
	for i, text := range texts {
		chunks, err := ai.SplitText(text, e.chunkSize, e.chunkOverlap)
		if err != nil {
			e.logger.Error("failed to split text", "index", i, "err", err)
			return nil, err
		}
		spans[i] = span{start: len(allChunks), end: len(allChunks) + len(chunks)}
		allChunks = append(allChunks, chunks...)
	}

	// Embed chunks in bounded batches.
	chunkVectors := make([][]float32, 0, len(allChunks))
	for start := 0; start < len(allChunks); start += maxEmbedBatchSize {
		end := min(start+maxEmbedBatchSize, len(allChunks))
		batch, err := e.embedder.EmbedDocuments(ctx, allChunks[start:end])
		if err != nil {
			e.logger.Error("failed to generate embeddings", "count", end-start, "err", err)
			return nil, err
		}
		chunkVectors = append(chunkVectors, batch...)
	}

	// Average each text's chunk vectors into a single vector.
	vectors := make([][]float32, len(texts))
	for i, s := range spans {
		if s.end-s.start == 1 {
			vectors[i] = chunkVectors[s.start]
			continue
		}
		vectors[i] = ai.MeanVector(chunkVectors[s.start:s.end])
	}
	return vectors, nil
}
