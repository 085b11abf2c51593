// Package toolserver exposes the retrieval and query-gate operations
// as HTTP tool endpoints for a conversational agent.
package toolserver
