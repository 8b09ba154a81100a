package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
	"github.com/tradewind-io/tradewind-gateway/pkg/apperrors"
	"github.com/tradewind-io/tradewind-gateway/pkg/models"
	"github.com/tradewind-io/tradewind-gateway/pkg/repositories"
)

// memRunRepository is an in-memory QueryRunRepository enforcing the same
// state-machine rules as the SQL implementation.
type memRunRepository struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*models.QueryRun
}

var _ repositories.QueryRunRepository = (*memRunRepository)(nil)

func newMemRunRepository() *memRunRepository {
	return &memRunRepository{runs: make(map[uuid.UUID]*models.QueryRun)}
}

func (r *memRunRepository) Create(_ context.Context, run *models.QueryRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = models.RunStatusCreated
	}
	run.CreatedAt = time.Now()
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

func (r *memRunRepository) get(id uuid.UUID) (*models.QueryRun, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return run, nil
}

func (r *memRunRepository) SetGeneratedSQL(_ context.Context, id uuid.UUID, generatedSQL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, err := r.get(id)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return apperrors.ErrRunAlreadyTerminal
	}
	run.GeneratedSQL = &generatedSQL
	return nil
}

func (r *memRunRepository) MarkRunning(_ context.Context, id uuid.UUID) error {
	return r.transition(id, models.RunStatusRunning, nil, nil, models.RunStatusCreated)
}

func (r *memRunRepository) MarkSuccess(_ context.Context, id uuid.UUID, meta models.RunMeta) error {
	return r.transition(id, models.RunStatusSuccess, nil, &meta, models.RunStatusRunning)
}

func (r *memRunRepository) MarkRejected(_ context.Context, id uuid.UUID, reason string) error {
	return r.transition(id, models.RunStatusRejected, &reason, nil, models.RunStatusRunning)
}

func (r *memRunRepository) MarkError(_ context.Context, id uuid.UUID, errText string) error {
	return r.transition(id, models.RunStatusError, &errText, nil, models.RunStatusCreated, models.RunStatusRunning)
}

func (r *memRunRepository) transition(id uuid.UUID, to models.RunStatus, errText *string, meta *models.RunMeta, from ...models.RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, err := r.get(id)
	if err != nil {
		return err
	}
	allowed := false
	for _, f := range from {
		if run.Status == f {
			allowed = true
		}
	}
	if !allowed {
		return apperrors.ErrRunAlreadyTerminal
	}
	run.Status = to
	run.Error = errText
	run.Meta = meta
	return nil
}

func (r *memRunRepository) GetByID(_ context.Context, id uuid.UUID) (*models.QueryRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, err := r.get(id)
	if err != nil {
		return nil, err
	}
	copied := *run
	return &copied, nil
}

func (r *memRunRepository) ListRecent(_ context.Context, limit int) ([]*models.QueryRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var runs []*models.QueryRun
	for _, run := range r.runs {
		copied := *run
		runs = append(runs, &copied)
		if limit > 0 && len(runs) >= limit {
			break
		}
	}
	return runs, nil
}

// mockExecutor is a configurable datasource.QueryExecutor.
type mockExecutor struct {
	QueryFunc func(ctx context.Context, sqlQuery string, opts datasource.QueryOptions) (*datasource.QueryResult, error)

	QueryCalls int
	LastSQL    string
	LastOpts   datasource.QueryOptions
}

var _ datasource.QueryExecutor = (*mockExecutor)(nil)

func (m *mockExecutor) Query(ctx context.Context, sqlQuery string, opts datasource.QueryOptions) (*datasource.QueryResult, error) {
	m.QueryCalls++
	m.LastSQL = sqlQuery
	m.LastOpts = opts
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sqlQuery, opts)
	}
	return &datasource.QueryResult{Columns: []string{}, Rows: [][]any{}}, nil
}

// staticSchemaContext returns a fixed description.
type staticSchemaContext struct {
	text string
	err  error
}

var _ SchemaContextService = (*staticSchemaContext)(nil)

func (s *staticSchemaContext) Describe(context.Context) (string, error) {
	return s.text, s.err
}

// mockSchemaExtractor is a configurable datasource.SchemaExtractor.
type mockSchemaExtractor struct {
	tables  []datasource.Table
	columns map[string][]datasource.Column
	err     error

	listTablesCalls int
}

var _ datasource.SchemaExtractor = (*mockSchemaExtractor)(nil)

func (m *mockSchemaExtractor) ListTables(context.Context) ([]datasource.Table, error) {
	m.listTablesCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.tables, nil
}

func (m *mockSchemaExtractor) ListColumns(_ context.Context, table datasource.Table) ([]datasource.Column, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.columns[table.Name], nil
}
