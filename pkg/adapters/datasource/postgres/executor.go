package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
)

// defaultStatementTimeout applies when QueryOptions carries no timeout.
const defaultStatementTimeout = 5 * time.Second

// resultCursor names the transaction-scoped cursor results are read through.
// Commit closes it, so the name never collides across executions.
const resultCursor = "tradewind_result"

// Executor provides bounded, read-only PostgreSQL query execution.
type Executor struct {
	pool *pgxpool.Pool
}

// NewExecutor creates an executor over an existing pool. The pool is shared;
// the executor never closes it.
func NewExecutor(pool *pgxpool.Pool) *Executor {
	return &Executor{pool: pool}
}

var _ datasource.QueryExecutor = (*Executor)(nil)

// Query implements datasource.QueryExecutor.
//
// The statement runs inside a read-only transaction with a SET LOCAL
// statement_timeout, so the bound is enforced server-side and scoped to
// exactly this execution. The surrounding context deadline covers the full
// round trip; cancelling it aborts the in-flight statement. Results come
// through a server-side cursor fetched one row past the (clamped) cap: the
// extra row distinguishes a truncated result from an exact fit, and a huge
// statement-embedded LIMIT costs at most cap+1 rows on the wire instead of
// the whole result set.
func (e *Executor) Query(ctx context.Context, sqlQuery string, opts datasource.QueryOptions) (*datasource.QueryResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultStatementTimeout
	}

	rowCap := opts.RowCap
	if rowCap <= 0 || rowCap > datasource.MaxRowCap {
		rowCap = datasource.MaxRowCap
	}

	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	// SET LOCAL scopes the timeout to this transaction only; the session
	// returned to the pool is unaffected.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", timeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("failed to set statement timeout: %w", err)
	}

	start := time.Now()

	if _, err := tx.Exec(ctx, "DECLARE "+resultCursor+" NO SCROLL CURSOR FOR "+sqlQuery); err != nil {
		return nil, fmt.Errorf("failed to open result cursor: %w", err)
	}

	// The FETCH text recurs with a different row shape per statement, so it
	// must bypass the SQL-keyed statement cache.
	rows, err := tx.Query(ctx,
		fmt.Sprintf("FETCH FORWARD %d FROM %s", rowCap+1, resultCursor),
		pgx.QueryExecModeDescribeExec)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		resultRows = append(resultRows, values)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	truncated := false
	if len(resultRows) > rowCap {
		truncated = true
		resultRows = resultRows[:rowCap]
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit read-only transaction: %w", err)
	}

	return &datasource.QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		Elapsed:   time.Since(start),
		Truncated: truncated,
	}, nil
}
