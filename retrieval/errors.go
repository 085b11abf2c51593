package retrieval

import "errors"

var (
	// ErrBackendRequired is returned when a retriever is constructed
	// without a storage backend.
	ErrBackendRequired = errors.New("retrieval: backend is required")

	// ErrEmbedderRequired is returned when a retriever is constructed
	// without an embedder.
	ErrEmbedderRequired = errors.New("retrieval: embedder is required")

	// ErrNoTableName is returned when a DDL document contains no
	// recognizable CREATE TABLE statement.
	ErrNoTableName = errors.New("retrieval: no table name found in DDL")
)
