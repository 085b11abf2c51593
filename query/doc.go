// Package query validates and executes agent-generated SQL. Only
// single SELECT statements pass the gate, and combined results are
// capped by a model token budget so they fit a downstream prompt.
package query
