package mock

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/poiesic/legisearch/ai"
	"github.com/poiesic/legisearch/core"
)

// MockClassifier is a test double for ai.Classifier.
type MockClassifier struct {
	// ClassifyBillFunc is called by ClassifyBill if set.
	// If nil, uses simple keyword-based defaults.
	ClassifyBillFunc func(ctx context.Context, title, description string) ([]string, error)

	callCount int
}

// NewMockClassifier creates a mock classifier with default keyword behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// ClassifyBill returns deterministic categories derived from obvious
// keywords in the text, falling back to "Other".
func (m *MockClassifier) ClassifyBill(ctx context.Context, title, description string) ([]string, error) {
	m.callCount++

	if m.ClassifyBillFunc != nil {
		return m.ClassifyBillFunc(ctx, title, description)
	}

	text := strings.ToLower(title + " " + description)
	var categories []string
	for _, category := range ai.BillCategories {
		if strings.Contains(text, strings.ToLower(category)) {
			categories = append(categories, category)
		}
	}
	if len(categories) == 0 {
		return []string{ai.CategoryOther}, nil
	}
	return categories, nil
}

// CallCount returns the number of times ClassifyBill was called.
func (m *MockClassifier) CallCount() int {
	return m.callCount
}

// MockSchemaInferrer is a test double for ai.SchemaInferrer.
type MockSchemaInferrer struct {
	// InferTableSchemaFunc is called by InferTableSchema if set.
	InferTableSchemaFunc func(ctx context.Context, fileName string, sample []string, excludeTableNames []string) (*core.TableInfo, error)

	callCount int
}

// NewMockSchemaInferrer creates a mock schema inferrer that derives a
// table name from the file name and types every column VARCHAR.
func NewMockSchemaInferrer() *MockSchemaInferrer {
	return &MockSchemaInferrer{}
}

// InferTableSchema returns a deterministic schema for the sample.
func (m *MockSchemaInferrer) InferTableSchema(ctx context.Context, fileName string, sample []string, excludeTableNames []string) (*core.TableInfo, error) {
	m.callCount++

	if m.InferTableSchemaFunc != nil {
		return m.InferTableSchemaFunc(ctx, fileName, sample, excludeTableNames)
	}

	name := strings.TrimSuffix(fileName, ".csv")
	name = strings.ToLower(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, name))

	columns := map[string]core.ColumnInfo{}
	if len(sample) > 0 {
		var row map[string]string
		if err := json.Unmarshal([]byte(sample[0]), &row); err == nil {
			for field := range row {
				columns[field] = core.ColumnInfo{Type: "VARCHAR", Description: "mock column"}
			}
		} else {
			for _, field := range strings.Split(sample[0], "|") {
				columns[field] = core.ColumnInfo{Type: "VARCHAR", Description: "mock column"}
			}
		}
	}

	return &core.TableInfo{
		FileName:  fileName,
		TableName: "voter_" + name,
		Summary:   "Mock summary for " + fileName,
		Columns:   columns,
	}, nil
}

// CallCount returns the number of times InferTableSchema was called.
func (m *MockSchemaInferrer) CallCount() int {
	return m.callCount
}
