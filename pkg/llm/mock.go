package llm

import "context"

// MockSQLGenerator is a configurable mock for testing gateway behavior.
// Set the function field to control behavior in tests.
type MockSQLGenerator struct {
	// GenerateSQLFunc is called when GenerateSQL is invoked.
	// If nil, returns an empty string and nil error.
	GenerateSQLFunc func(ctx context.Context, question string, schemaHint string) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	GenerateSQLCalls int
	LastQuestion     string
	LastSchemaHint   string
}

// NewMockSQLGenerator creates a new mock with sensible defaults.
func NewMockSQLGenerator() *MockSQLGenerator {
	return &MockSQLGenerator{Model: "mock-model"}
}

// GenerateSQL implements SQLGenerator.
func (m *MockSQLGenerator) GenerateSQL(ctx context.Context, question string, schemaHint string) (string, error) {
	m.GenerateSQLCalls++
	m.LastQuestion = question
	m.LastSchemaHint = schemaHint
	if m.GenerateSQLFunc != nil {
		return m.GenerateSQLFunc(ctx, question, schemaHint)
	}
	return "", nil
}

// GetModel implements SQLGenerator.
func (m *MockSQLGenerator) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}
