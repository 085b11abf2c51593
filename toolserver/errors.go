package toolserver

import "errors"

var (
	// ErrRetrieverRequired is returned when the server is constructed
	// without a schema retriever.
	ErrRetrieverRequired = errors.New("toolserver: retriever is required")

	// ErrGateRequired is returned when the server is constructed
	// without a query gate.
	ErrGateRequired = errors.New("toolserver: query gate is required")
)
