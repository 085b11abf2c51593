package embedding

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry is configured with
	// zero or negative attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrBackendRequired is returned when a storage backend is not provided.
	ErrBackendRequired = errors.New("storage backend required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexRebuild is returned when the ANN index could not be
	// rebuilt after a backfill. Embeddings written by the run stay
	// committed.
	ErrIndexRebuild = errors.New("index rebuild failed")
)
