// Package llm provides clients for the external SQL-generating model.
package llm

import "context"

// SQLGenerator converts a natural-language question into a candidate SQL
// string. The output is untrusted regardless of the prompt instructions: it
// may be empty, multi-statement, or not SQL at all, and must always pass the
// sanitizer before execution.
// Use this interface for dependency injection to enable mocking in tests.
type SQLGenerator interface {
	// GenerateSQL returns the raw candidate produced by the model for the
	// given question and schema description.
	GenerateSQL(ctx context.Context, question string, schemaHint string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy SQLGenerator at compile time.
var (
	_ SQLGenerator = (*Client)(nil)
	_ SQLGenerator = (*AnthropicClient)(nil)
	_ SQLGenerator = (*MockSQLGenerator)(nil)
)
