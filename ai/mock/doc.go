// Package mock provides deterministic test doubles for the ai package
// interfaces. The mock embedder produces stable pseudo-random vectors
// derived from the input text, so tests that compare or re-embed the
// same text get identical vectors without a model server.
package mock
