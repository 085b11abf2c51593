package query

import "errors"

var (
	// ErrExecutorRequired is returned when a gate is constructed
	// without a statement executor.
	ErrExecutorRequired = errors.New("query: executor is required")

	// ErrNotSelect is returned when a statement is anything other than
	// a single SELECT (or WITH ... SELECT).
	ErrNotSelect = errors.New("query: only SELECT statements are allowed")

	// ErrMultiStatement is returned when a single input carries more
	// than one SQL statement.
	ErrMultiStatement = errors.New("query: multiple statements are not allowed")

	// ErrEmptyStatement is returned for blank input.
	ErrEmptyStatement = errors.New("query: empty statement")

	// ErrResultTooLarge is returned when the combined result set
	// exceeds the token budget. No partial results are returned.
	ErrResultTooLarge = errors.New("query: result too large")

	// ErrQueryFailed is the user-safe execution failure. The underlying
	// cause is logged, never returned.
	ErrQueryFailed = errors.New("query: query execution failed")
)
