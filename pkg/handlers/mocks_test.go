package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/tradewind-io/tradewind-gateway/pkg/models"
	"github.com/tradewind-io/tradewind-gateway/pkg/services"
)

// mockGatewayService is a configurable mock for handler tests.
type mockGatewayService struct {
	AskFunc      func(ctx context.Context, req *services.AskRequest) (*services.AskResult, error)
	GetRunFunc   func(ctx context.Context, id uuid.UUID) (*models.QueryRun, error)
	ListRunsFunc func(ctx context.Context, limit int) ([]*models.QueryRun, error)

	AskCalls    int
	LastRequest *services.AskRequest
}

var _ services.GatewayService = (*mockGatewayService)(nil)

func (m *mockGatewayService) Ask(ctx context.Context, req *services.AskRequest) (*services.AskResult, error) {
	m.AskCalls++
	m.LastRequest = req
	if m.AskFunc != nil {
		return m.AskFunc(ctx, req)
	}
	return &services.AskResult{}, nil
}

func (m *mockGatewayService) GetRun(ctx context.Context, id uuid.UUID) (*models.QueryRun, error) {
	if m.GetRunFunc != nil {
		return m.GetRunFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockGatewayService) ListRuns(ctx context.Context, limit int) ([]*models.QueryRun, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(ctx, limit)
	}
	return nil, nil
}
