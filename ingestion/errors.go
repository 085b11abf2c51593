package ingestion

import "errors"

var (
	// ErrBackendRequired is returned when a storage backend is not provided.
	ErrBackendRequired = errors.New("storage backend required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrRootRequired is returned when no corpus root directory is provided.
	ErrRootRequired = errors.New("corpus root directory required")

	// ErrMalformedFile is returned when a source file cannot be parsed.
	ErrMalformedFile = errors.New("malformed source file")
)
