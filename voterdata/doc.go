// Package voterdata imports pipe-delimited voter registration extracts.
// Each file becomes a dynamically created value table whose schema is
// inferred by a language model from a sample of rows, alongside a
// side table mirroring every row as a JSON document for embedding.
// The rendered CREATE TABLE text is registered with chunk embeddings
// so schema retrieval can surface the table from free-text questions.
package voterdata
