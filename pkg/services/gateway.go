package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
	"github.com/tradewind-io/tradewind-gateway/pkg/apperrors"
	"github.com/tradewind-io/tradewind-gateway/pkg/logging"
	"github.com/tradewind-io/tradewind-gateway/pkg/metrics"
	"github.com/tradewind-io/tradewind-gateway/pkg/models"
	"github.com/tradewind-io/tradewind-gateway/pkg/repositories"
	sqlgate "github.com/tradewind-io/tradewind-gateway/pkg/sql"

	"github.com/tradewind-io/tradewind-gateway/pkg/llm"
)

// AskRequest is one natural-language query request.
type AskRequest struct {
	NLQuery string

	// SchemaHint, when non-empty, replaces the introspected schema text in
	// the generation prompt. Informational only; it never affects the gate.
	SchemaHint string

	// MaxRows is the LIMIT appended when the candidate carries none, and the
	// fetch-side row cap. 1..1000; zero means the configured default.
	MaxRows int
}

// AskResult is the successful outcome of one run.
type AskResult struct {
	RunID uuid.UUID

	// SQL is the exact statement that was executed.
	SQL string

	Result *datasource.QueryResult
	Meta   models.RunMeta
}

// GatewayConfig holds the orchestrator's execution bounds.
type GatewayConfig struct {
	DefaultMaxRows   int
	StatementTimeout time.Duration
}

// GatewayService sequences one request through generate -> sanitize ->
// execute -> audit. Every path reaches a terminal run status before
// returning.
type GatewayService interface {
	Ask(ctx context.Context, req *AskRequest) (*AskResult, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.QueryRun, error)
	ListRuns(ctx context.Context, limit int) ([]*models.QueryRun, error)
}

type gatewayService struct {
	runs      repositories.QueryRunRepository
	generator llm.SQLGenerator
	executor  datasource.QueryExecutor
	schemaCtx SchemaContextService
	cfg       GatewayConfig
	logger    *zap.Logger
}

// NewGatewayService creates a gateway service with dependencies.
func NewGatewayService(
	runs repositories.QueryRunRepository,
	generator llm.SQLGenerator,
	executor datasource.QueryExecutor,
	schemaCtx SchemaContextService,
	cfg GatewayConfig,
	logger *zap.Logger,
) GatewayService {
	return &gatewayService{
		runs:      runs,
		generator: generator,
		executor:  executor,
		schemaCtx: schemaCtx,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ask runs the full state machine for one request. Rejections come back as a
// *sql.Rejection (safe to surface verbatim); generator failures satisfy
// errors.Is(err, apperrors.ErrGeneratorUnavailable); anything else is an
// execution failure whose detail lives only in the audit record.
func (s *gatewayService) Ask(ctx context.Context, req *AskRequest) (*AskResult, error) {
	maxRows := req.MaxRows
	if maxRows <= 0 {
		maxRows = s.cfg.DefaultMaxRows
	}

	run := &models.QueryRun{NLQuery: req.NLQuery}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create query run: %w", err)
	}

	if err := s.runs.MarkRunning(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("failed to mark run running: %w", err)
	}

	schemaHint := req.SchemaHint
	if schemaHint == "" {
		hint, err := s.schemaCtx.Describe(ctx)
		if err != nil {
			// Proceed without schema context: generation quality drops but
			// nothing else depends on it.
			s.logger.Warn("proceeding without schema context", zap.Error(err))
		} else {
			schemaHint = hint
		}
	}

	candidate, err := s.generator.GenerateSQL(ctx, req.NLQuery, schemaHint)
	if err != nil {
		s.terminateError(ctx, run.ID, err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGeneratorUnavailable, err)
	}

	// The raw oracle output is always retained for audit, even when the
	// sanitizer is about to reject it.
	if err := s.runs.SetGeneratedSQL(ctx, run.ID, candidate); err != nil {
		s.logger.Error("failed to persist generated SQL", zap.String("run_id", run.ID.String()), zap.Error(err))
	}

	sanitized, err := sqlgate.Sanitize(candidate, maxRows)
	if err != nil {
		return nil, s.terminateRejected(ctx, run.ID, err)
	}

	if hit := sqlgate.ScreenLiterals(sanitized); hit != nil {
		s.logger.Warn("injection pattern in string literal",
			zap.String("run_id", run.ID.String()),
			zap.String("fingerprint", hit.Fingerprint))
		rejection := &sqlgate.Rejection{Reason: sqlgate.ReasonSuspiciousLiteral}
		return nil, s.terminateRejected(ctx, run.ID, rejection)
	}

	result, err := s.executor.Query(ctx, sanitized, datasource.QueryOptions{
		Timeout: s.cfg.StatementTimeout,
		RowCap:  maxRows,
	})
	if err != nil {
		s.terminateError(ctx, run.ID, err)
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	meta := models.RunMeta{
		RuntimeSeconds: result.Elapsed.Seconds(),
		RowCount:       len(result.Rows),
	}
	if err := s.runs.MarkSuccess(ctx, run.ID, meta); err != nil {
		s.logger.Error("failed to mark run success", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
	metrics.RecordRun(string(models.RunStatusSuccess))
	metrics.RecordExecution(result.Elapsed, len(result.Rows))

	s.logger.Info("text2sql run succeeded",
		zap.String("run_id", run.ID.String()),
		zap.Int("rows", len(result.Rows)),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", result.Elapsed))

	return &AskResult{
		RunID:  run.ID,
		SQL:    sanitized,
		Result: result,
		Meta:   meta,
	}, nil
}

// terminateRejected moves the run to rejected and returns the rejection for
// the caller to surface. Rejection reasons are non-sensitive by design.
func (s *gatewayService) terminateRejected(ctx context.Context, id uuid.UUID, rejection error) error {
	if err := s.runs.MarkRejected(ctx, id, rejection.Error()); err != nil {
		s.logger.Error("failed to mark run rejected", zap.String("run_id", id.String()), zap.Error(err))
	}
	metrics.RecordRun(string(models.RunStatusRejected))
	s.logger.Info("text2sql run rejected",
		zap.String("run_id", id.String()),
		zap.String("reason", rejection.Error()))
	return rejection
}

// terminateError moves the run to error, persisting redacted detail for
// operators only.
func (s *gatewayService) terminateError(ctx context.Context, id uuid.UUID, cause error) {
	if err := s.runs.MarkError(ctx, id, logging.SanitizeError(cause)); err != nil {
		s.logger.Error("failed to mark run error", zap.String("run_id", id.String()), zap.Error(err))
	}
	metrics.RecordRun(string(models.RunStatusError))
	s.logger.Error("text2sql run failed", zap.String("run_id", id.String()), zap.Error(cause))
}

func (s *gatewayService) GetRun(ctx context.Context, id uuid.UUID) (*models.QueryRun, error) {
	return s.runs.GetByID(ctx, id)
}

func (s *gatewayService) ListRuns(ctx context.Context, limit int) ([]*models.QueryRun, error) {
	return s.runs.ListRecent(ctx, limit)
}
