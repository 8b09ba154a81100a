// Package datasource defines the execution and introspection contracts the
// gateway consumes. Implementations own their connections; the gateway only
// ever hands them sanitizer-approved SQL.
package datasource

import (
	"context"
	"time"
)

// MaxRowCap is the hard cap on rows physically fetched by Query.
// This is independent of any LIMIT clause in the statement: an oracle-supplied
// LIMIT can be arbitrarily large, and the sanitizer deliberately leaves an
// existing LIMIT untouched, so the fetch side must bound itself.
const MaxRowCap = 1000

// QueryOptions bound a single execution.
type QueryOptions struct {
	// Timeout is applied as a per-statement bound scoped to exactly this
	// execution. Zero means the implementation's default.
	Timeout time.Duration

	// RowCap limits physically fetched rows. Values <= 0 or > MaxRowCap are
	// clamped to MaxRowCap.
	RowCap int
}

// QueryResult holds the results from one bounded, read-only execution.
type QueryResult struct {
	// Columns in result order.
	Columns []string `json:"columns"`

	// Rows as ordered tuples matching Columns.
	Rows [][]any `json:"rows"`

	// Elapsed is the wall-clock execution time.
	Elapsed time.Duration `json:"-"`

	// Truncated is true when the row cap was hit, meaning more rows may
	// exist but were not fetched.
	Truncated bool `json:"truncated"`
}

// QueryExecutor executes already-sanitized SQL under a timeout and row cap.
type QueryExecutor interface {
	// Query runs a single read-only statement. Fails with an error on
	// timeout or any database-reported runtime error.
	Query(ctx context.Context, sqlQuery string, opts QueryOptions) (*QueryResult, error)
}

// Table identifies a user table.
type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// Column describes a column of a user table.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Position int    `json:"position"` // declaration order, 1-based
}

// SchemaExtractor introspects the database structure for prompt context.
type SchemaExtractor interface {
	// ListTables returns all user tables, sorted by (schema, name).
	ListTables(ctx context.Context) ([]Table, error)

	// ListColumns returns the columns of a table in declaration order.
	ListColumns(ctx context.Context, table Table) ([]Column, error)
}
