package ai

import (
	"context"

	"github.com/poiesic/legisearch/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Inputs longer than the configured chunk size are split into
	// overlapping windows, embedded individually, and averaged into a
	// single vector of the model's dimensionality.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier assigns topical categories to a bill.
// Implementations must be thread-safe for concurrent use.
type Classifier interface {
	// ClassifyBill returns up to MaxCategories categories from
	// BillCategories for the given bill text, most relevant first.
	// Returns at least one category; "Other" when nothing matches.
	ClassifyBill(ctx context.Context, title, description string) ([]string, error)
}

// SchemaInferrer derives a relational table schema from a sample of raw
// delimited records.
type SchemaInferrer interface {
	// InferTableSchema proposes a table name, summary and column types
	// for the sampled records. excludeTableNames lists names the
	// inferred table must not collide with.
	InferTableSchema(ctx context.Context, fileName string, sample []string, excludeTableNames []string) (*core.TableInfo, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder, Classifier and
// SchemaInferrer instances, ensuring they share configuration and resources.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Classifier returns the bill classification service.
	// The returned Classifier is safe for concurrent use.
	Classifier() Classifier

	// SchemaInferrer returns the table schema inference service.
	SchemaInferrer() SchemaInferrer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
