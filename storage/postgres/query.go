package postgres

import (
	"context"
	"encoding/json"
	"fmt"
)

// QueryJSON executes one statement and returns its rows as a JSON array
// of column-keyed objects. Statement validation is the caller's
// responsibility; this method only runs what it is given.
func (b *Backend) QueryJSON(ctx context.Context, statement string) (string, error) {
	rows, err := b.pool.Query(ctx, statement)
	if err != nil {
		return "", fmt.Errorf("executing statement: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return "", fmt.Errorf("reading row: %w", err)
		}
		record := make(map[string]any, len(fields))
		for i, field := range fields {
			value := values[i]
			// Raw bytes are opaque to JSON; render as text.
			if raw, ok := value.([]byte); ok {
				value = string(raw)
			}
			record[field.Name] = value
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating rows: %w", err)
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	return string(encoded), nil
}
