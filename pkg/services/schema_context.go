package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
	"github.com/tradewind-io/tradewind-gateway/pkg/apperrors"
)

// SchemaContextService renders the database structure as compact text for
// inclusion in a generation prompt.
type SchemaContextService interface {
	// Describe returns the schema description. Output is deterministic:
	// tables sorted by (schema, name), columns in declaration order, so an
	// unchanged schema yields byte-identical text across calls.
	Describe(ctx context.Context) (string, error)
}

type schemaContextService struct {
	extractor datasource.SchemaExtractor
	ttl       time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	cached   string
	cachedAt time.Time
}

// NewSchemaContextService creates a describer over the given extractor.
// ttl > 0 caches the rendered text; sanitization never reads the schema, so a
// stale description can only affect prompt quality, never safety.
func NewSchemaContextService(extractor datasource.SchemaExtractor, ttl time.Duration, logger *zap.Logger) SchemaContextService {
	return &schemaContextService{
		extractor: extractor,
		ttl:       ttl,
		logger:    logger,
	}
}

func (s *schemaContextService) Describe(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.ttl > 0 && s.cached != "" && time.Since(s.cachedAt) < s.ttl {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	text, err := s.render(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrSchemaUnavailable, err)
	}

	s.mu.Lock()
	s.cached = text
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return text, nil
}

func (s *schemaContextService) render(ctx context.Context) (string, error) {
	tables, err := s.extractor.ListTables(ctx)
	if err != nil {
		return "", err
	}

	blocks := make([]string, 0, len(tables))
	for _, table := range tables {
		columns, err := s.extractor.ListColumns(ctx, table)
		if err != nil {
			return "", err
		}

		cols := make([]string, 0, len(columns))
		for _, c := range columns {
			cols = append(cols, fmt.Sprintf("%s (%s)", c.Name, c.DataType))
		}

		name := table.Name
		if table.Schema != "" && table.Schema != "public" {
			name = table.Schema + "." + table.Name
		}

		blocks = append(blocks, fmt.Sprintf("Table: %s\n  Columns: %s", name, strings.Join(cols, ", ")))
	}

	s.logger.Debug("rendered schema context", zap.Int("tables", len(blocks)))

	return strings.Join(blocks, "\n\n"), nil
}
