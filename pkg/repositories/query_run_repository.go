package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradewind-io/tradewind-gateway/pkg/apperrors"
	"github.com/tradewind-io/tradewind-gateway/pkg/database"
	"github.com/tradewind-io/tradewind-gateway/pkg/models"
)

// QueryRunRepository provides data access for text2sql audit records.
// Every mutation enforces the status state machine in SQL: updates only apply
// while the stored status is non-terminal, so a run can never leave success,
// rejected, or error.
type QueryRunRepository interface {
	Create(ctx context.Context, run *models.QueryRun) error
	SetGeneratedSQL(ctx context.Context, id uuid.UUID, generatedSQL string) error
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkSuccess(ctx context.Context, id uuid.UUID, meta models.RunMeta) error
	MarkRejected(ctx context.Context, id uuid.UUID, reason string) error
	MarkError(ctx context.Context, id uuid.UUID, errText string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.QueryRun, error)
	ListRecent(ctx context.Context, limit int) ([]*models.QueryRun, error)
}

type queryRunRepository struct {
	db *database.DB
}

// NewQueryRunRepository creates a repository backed by the given pool.
func NewQueryRunRepository(db *database.DB) QueryRunRepository {
	return &queryRunRepository{db: db}
}

var _ QueryRunRepository = (*queryRunRepository)(nil)

func (r *queryRunRepository) Create(ctx context.Context, run *models.QueryRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = models.RunStatusCreated
	}

	query := `
		INSERT INTO query_runs (id, nl_query, status)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	if err := r.db.QueryRow(ctx, query, run.ID, run.NLQuery, run.Status).Scan(&run.CreatedAt); err != nil {
		return fmt.Errorf("failed to create query run: %w", err)
	}

	return nil
}

func (r *queryRunRepository) SetGeneratedSQL(ctx context.Context, id uuid.UUID, generatedSQL string) error {
	query := `
		UPDATE query_runs
		SET generated_sql = $2
		WHERE id = $1 AND status NOT IN ('success', 'rejected', 'error')`

	return r.execStateChange(ctx, query, id, generatedSQL)
}

func (r *queryRunRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE query_runs
		SET status = 'running'
		WHERE id = $1 AND status = 'created'`

	return r.execStateChange(ctx, query, id)
}

func (r *queryRunRepository) MarkSuccess(ctx context.Context, id uuid.UUID, meta models.RunMeta) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal run meta: %w", err)
	}

	query := `
		UPDATE query_runs
		SET status = 'success', meta = $2
		WHERE id = $1 AND status = 'running'`

	return r.execStateChange(ctx, query, id, metaJSON)
}

func (r *queryRunRepository) MarkRejected(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE query_runs
		SET status = 'rejected', error = $2
		WHERE id = $1 AND status = 'running'`

	return r.execStateChange(ctx, query, id, reason)
}

func (r *queryRunRepository) MarkError(ctx context.Context, id uuid.UUID, errText string) error {
	query := `
		UPDATE query_runs
		SET status = 'error', error = $2
		WHERE id = $1 AND status IN ('created', 'running')`

	return r.execStateChange(ctx, query, id, errText)
}

// execStateChange runs an update whose WHERE clause encodes the legal
// transitions. Zero affected rows means the run is missing or already
// terminal; distinguish for the caller.
func (r *queryRunRepository) execStateChange(ctx context.Context, query string, id uuid.UUID, args ...any) error {
	tag, err := r.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update query run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var status models.RunStatus
		err := r.db.QueryRow(ctx, `SELECT status FROM query_runs WHERE id = $1`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read query run status: %w", err)
		}
		return apperrors.ErrRunAlreadyTerminal
	}
	return nil
}

func (r *queryRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.QueryRun, error) {
	query := `
		SELECT id, created_at, nl_query, generated_sql, status, error, meta
		FROM query_runs
		WHERE id = $1`

	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query run: %w", err)
	}
	return run, nil
}

func (r *queryRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.QueryRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, created_at, nl_query, generated_sql, status, error, meta
		FROM query_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.QueryRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query runs: %w", err)
	}

	return runs, nil
}

func scanRun(row pgx.Row) (*models.QueryRun, error) {
	var run models.QueryRun
	var metaJSON []byte

	err := row.Scan(
		&run.ID,
		&run.CreatedAt,
		&run.NLQuery,
		&run.GeneratedSQL,
		&run.Status,
		&run.Error,
		&metaJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(metaJSON) > 0 && string(metaJSON) != "null" {
		var meta models.RunMeta
		if jsonErr := json.Unmarshal(metaJSON, &meta); jsonErr == nil {
			run.Meta = &meta
		}
	}

	return &run, nil
}
