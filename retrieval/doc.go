// Package retrieval serves vector similarity search over the corpus:
// schema candidates for text-to-SQL, bill content similarity, and
// example value lookup from imported voter tables.
package retrieval
