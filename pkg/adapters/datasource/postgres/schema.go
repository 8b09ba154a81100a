package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
)

// SchemaExtractor provides PostgreSQL schema introspection for prompt context.
// The catalog queries here are issued by trusted code over the service's own
// pool; oracle-generated SQL can never reach the catalogs (the sanitizer
// rejects any candidate naming them).
type SchemaExtractor struct {
	pool *pgxpool.Pool
}

// NewSchemaExtractor creates an extractor over an existing pool.
func NewSchemaExtractor(pool *pgxpool.Pool) *SchemaExtractor {
	return &SchemaExtractor{pool: pool}
}

var _ datasource.SchemaExtractor = (*SchemaExtractor)(nil)

// ListTables implements datasource.SchemaExtractor. Ordering is fixed so
// repeated calls against an unchanged schema enumerate identically.
func (s *SchemaExtractor) ListTables(ctx context.Context) ([]datasource.Table, error) {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.Table
	for rows.Next() {
		var t datasource.Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return tables, nil
}

// ListColumns implements datasource.SchemaExtractor. Columns come back in
// declaration (ordinal) order.
func (s *SchemaExtractor) ListColumns(ctx context.Context, table datasource.Table) ([]datasource.Column, error) {
	query := `
		SELECT column_name, data_type, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := s.pool.Query(ctx, query, table.Schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns for %s.%s: %w", table.Schema, table.Name, err)
	}
	defer rows.Close()

	var columns []datasource.Column
	for rows.Next() {
		var c datasource.Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}
