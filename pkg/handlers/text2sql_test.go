package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
	"github.com/tradewind-io/tradewind-gateway/pkg/apperrors"
	"github.com/tradewind-io/tradewind-gateway/pkg/models"
	"github.com/tradewind-io/tradewind-gateway/pkg/services"
	sqlgate "github.com/tradewind-io/tradewind-gateway/pkg/sql"
)

func askHandler(gateway *mockGatewayService) *Text2SQLHandler {
	return NewText2SQLHandler(gateway, zap.NewNop())
}

func postAsk(t *testing.T, handler *Text2SQLHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/text2sql/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)
	return rec
}

func TestText2SQLHandler_Ask_JSON(t *testing.T) {
	runID := uuid.New()
	gateway := &mockGatewayService{
		AskFunc: func(_ context.Context, _ *services.AskRequest) (*services.AskResult, error) {
			return &services.AskResult{
				RunID: runID,
				SQL:   "SELECT companyName FROM shippers LIMIT 1000",
				Result: &datasource.QueryResult{
					Columns: []string{"companyName"},
					Rows:    [][]any{{"Speedy Express"}, {"United Package"}},
				},
				Meta: models.RunMeta{RuntimeSeconds: 0.02, RowCount: 2},
			}, nil
		},
	}

	rec := postAsk(t, askHandler(gateway), `{"nl_query": "list shippers"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response Text2SQLResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.RunID != runID.String() {
		t.Errorf("run_id = %q, want %q", response.RunID, runID)
	}
	if response.SQL != "SELECT companyName FROM shippers LIMIT 1000" {
		t.Errorf("sql = %q", response.SQL)
	}
	if len(response.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(response.Rows))
	}
	if response.Rows[0]["companyName"] != "Speedy Express" {
		t.Errorf("row 0 = %v", response.Rows[0])
	}
	if response.Meta.RowCount != 2 {
		t.Errorf("meta.row_count = %d, want 2", response.Meta.RowCount)
	}

	if gateway.LastRequest.NLQuery != "list shippers" {
		t.Errorf("nl_query passed = %q", gateway.LastRequest.NLQuery)
	}
	if gateway.LastRequest.MaxRows != 0 {
		t.Errorf("max_rows passed = %d, want 0 (service default)", gateway.LastRequest.MaxRows)
	}
}

func TestText2SQLHandler_Ask_DataframeCSV(t *testing.T) {
	gateway := &mockGatewayService{
		AskFunc: func(_ context.Context, _ *services.AskRequest) (*services.AskResult, error) {
			return &services.AskResult{
				RunID: uuid.New(),
				SQL:   "SELECT companyName, freight FROM orders LIMIT 2",
				Result: &datasource.QueryResult{
					Columns: []string{"companyName", "freight"},
					Rows:    [][]any{{"Speedy Express", 32.38}},
				},
				Meta: models.RunMeta{RowCount: 1},
			}, nil
		},
	}

	rec := postAsk(t, askHandler(gateway), `{"nl_query": "freight by shipper", "format": "dataframe_csv"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response Text2SQLCSVResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.CSV != "companyName,freight\nSpeedy Express,32.38\n" {
		t.Errorf("csv = %q", response.CSV)
	}
	if response.Rows != 1 {
		t.Errorf("rows = %d, want 1", response.Rows)
	}
}

func TestText2SQLHandler_Ask_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing nl_query", `{}`},
		{"empty nl_query", `{"nl_query": ""}`},
		{"invalid JSON", `{`},
		{"unknown format", `{"nl_query": "q", "format": "xml"}`},
		{"max_rows too large", `{"nl_query": "q", "max_rows": 1001}`},
		{"max_rows negative", `{"nl_query": "q", "max_rows": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &mockGatewayService{}
			rec := postAsk(t, askHandler(gateway), tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			if gateway.AskCalls != 0 {
				t.Errorf("gateway called %d times on invalid input", gateway.AskCalls)
			}
		})
	}
}

func TestText2SQLHandler_Ask_Rejection(t *testing.T) {
	gateway := &mockGatewayService{
		AskFunc: func(_ context.Context, _ *services.AskRequest) (*services.AskResult, error) {
			return nil, &sqlgate.Rejection{Reason: sqlgate.ReasonBlockedKeyword, Token: "DROP"}
		},
	}

	rec := postAsk(t, askHandler(gateway), `{"nl_query": "drop the orders table"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] != "disallowed SQL operation detected: DROP" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestText2SQLHandler_Ask_ExecutionFailure(t *testing.T) {
	gateway := &mockGatewayService{
		AskFunc: func(_ context.Context, _ *services.AskRequest) (*services.AskResult, error) {
			return nil, errors.New("query execution failed: column does not exist")
		},
	}

	rec := postAsk(t, askHandler(gateway), `{"nl_query": "q"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] != "Execution failed" {
		t.Errorf("error = %q, want 'Execution failed'", body["error"])
	}
	if body["detail"] == "" {
		t.Error("expected non-empty detail")
	}
}

func TestText2SQLHandler_Ask_GeneratorFailure(t *testing.T) {
	gateway := &mockGatewayService{
		AskFunc: func(_ context.Context, _ *services.AskRequest) (*services.AskResult, error) {
			return nil, apperrors.ErrGeneratorUnavailable
		},
	}

	rec := postAsk(t, askHandler(gateway), `{"nl_query": "q"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestText2SQLHandler_GetRun(t *testing.T) {
	runID := uuid.New()
	sql := "SELECT 1 LIMIT 1000"
	gateway := &mockGatewayService{
		GetRunFunc: func(_ context.Context, id uuid.UUID) (*models.QueryRun, error) {
			if id != runID {
				return nil, apperrors.ErrNotFound
			}
			return &models.QueryRun{
				ID:           runID,
				CreatedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
				NLQuery:      "q",
				GeneratedSQL: &sql,
				Status:       models.RunStatusSuccess,
				Meta:         &models.RunMeta{RowCount: 1},
			}, nil
		},
	}

	mux := http.NewServeMux()
	askHandler(gateway).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/text2sql/runs/"+runID.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response RunResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.RunID != runID.String() {
		t.Errorf("run_id = %q", response.RunID)
	}
	if response.Status != "success" {
		t.Errorf("status = %q", response.Status)
	}
	if response.CreatedAt != "2026-08-01T12:00:00Z" {
		t.Errorf("created_at = %q", response.CreatedAt)
	}
	if response.GeneratedSQL == nil || *response.GeneratedSQL != sql {
		t.Errorf("generated_sql = %v", response.GeneratedSQL)
	}
}

func TestText2SQLHandler_GetRun_NotFound(t *testing.T) {
	gateway := &mockGatewayService{
		GetRunFunc: func(context.Context, uuid.UUID) (*models.QueryRun, error) {
			return nil, apperrors.ErrNotFound
		},
	}

	mux := http.NewServeMux()
	askHandler(gateway).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/text2sql/runs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestText2SQLHandler_GetRun_InvalidID(t *testing.T) {
	mux := http.NewServeMux()
	askHandler(&mockGatewayService{}).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/text2sql/runs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestText2SQLHandler_ListRuns(t *testing.T) {
	var gotLimit int
	gateway := &mockGatewayService{
		ListRunsFunc: func(_ context.Context, limit int) ([]*models.QueryRun, error) {
			gotLimit = limit
			return []*models.QueryRun{
				{ID: uuid.New(), NLQuery: "q1", Status: models.RunStatusSuccess},
				{ID: uuid.New(), NLQuery: "q2", Status: models.RunStatusRejected},
			}, nil
		},
	}

	mux := http.NewServeMux()
	askHandler(gateway).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/text2sql/runs?limit=5", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if gotLimit != 5 {
		t.Errorf("limit = %d, want 5", gotLimit)
	}

	var response ListRunsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(response.Runs))
	}
}

func TestText2SQLHandler_ListRuns_LimitCapped(t *testing.T) {
	var gotLimit int
	gateway := &mockGatewayService{
		ListRunsFunc: func(_ context.Context, limit int) ([]*models.QueryRun, error) {
			gotLimit = limit
			return nil, nil
		},
	}

	mux := http.NewServeMux()
	askHandler(gateway).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/text2sql/runs?limit=9999", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if gotLimit != maxListLimit {
		t.Errorf("limit = %d, want %d", gotLimit, maxListLimit)
	}
}
