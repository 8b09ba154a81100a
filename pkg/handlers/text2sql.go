package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
	"github.com/tradewind-io/tradewind-gateway/pkg/apperrors"
	"github.com/tradewind-io/tradewind-gateway/pkg/logging"
	"github.com/tradewind-io/tradewind-gateway/pkg/models"
	"github.com/tradewind-io/tradewind-gateway/pkg/services"
	sqlgate "github.com/tradewind-io/tradewind-gateway/pkg/sql"
)

const (
	// FormatJSON returns rows as an array of column->value objects.
	FormatJSON = "json"
	// FormatDataframeCSV returns the result rendered as CSV text.
	FormatDataframeCSV = "dataframe_csv"

	maxRowsCeiling   = 1000
	defaultListLimit = 20
	maxListLimit     = 100
)

// Text2SQLRequest is the POST body for a natural-language query.
type Text2SQLRequest struct {
	NLQuery string `json:"nl_query"`
	Schema  string `json:"schema,omitempty"`
	Format  string `json:"format,omitempty"`
	MaxRows int    `json:"max_rows,omitempty"`
}

// Text2SQLResponse is the success payload for format "json".
type Text2SQLResponse struct {
	RunID     string           `json:"run_id"`
	SQL       string           `json:"sql"`
	Rows      []map[string]any `json:"rows"`
	Meta      models.RunMeta   `json:"meta"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Text2SQLCSVResponse is the success payload for format "dataframe_csv".
// Rows is a count here, not the data; the data lives in CSV.
type Text2SQLCSVResponse struct {
	RunID     string         `json:"run_id"`
	SQL       string         `json:"sql"`
	CSV       string         `json:"csv"`
	Rows      int            `json:"rows"`
	Meta      models.RunMeta `json:"meta"`
	Truncated bool           `json:"truncated,omitempty"`
}

// RunResponse is the serialized audit record.
type RunResponse struct {
	RunID        string          `json:"run_id"`
	CreatedAt    string          `json:"created_at"`
	NLQuery      string          `json:"nl_query"`
	GeneratedSQL *string         `json:"generated_sql"`
	Status       string          `json:"status"`
	Error        *string         `json:"error,omitempty"`
	Meta         *models.RunMeta `json:"meta,omitempty"`
}

// ListRunsResponse wraps the array for frontend compatibility.
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

// Text2SQLHandler handles natural-language query HTTP requests.
type Text2SQLHandler struct {
	gateway services.GatewayService
	logger  *zap.Logger
}

// NewText2SQLHandler creates a new text2sql handler.
func NewText2SQLHandler(gateway services.GatewayService, logger *zap.Logger) *Text2SQLHandler {
	return &Text2SQLHandler{gateway: gateway, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *Text2SQLHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/text2sql/", h.Ask)
	mux.HandleFunc("GET /api/text2sql/runs", h.ListRuns)
	mux.HandleFunc("GET /api/text2sql/runs/{id}", h.GetRun)
}

// Ask handles POST /api/text2sql/
func (h *Text2SQLHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req Text2SQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}

	if req.NLQuery == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "nl_query is required", "")
		return
	}

	format := req.Format
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatDataframeCSV {
		_ = ErrorResponse(w, http.StatusBadRequest, "format must be 'json' or 'dataframe_csv'", "")
		return
	}

	if req.MaxRows < 0 || req.MaxRows > maxRowsCeiling {
		_ = ErrorResponse(w, http.StatusBadRequest, "max_rows must be between 1 and 1000", "")
		return
	}

	result, err := h.gateway.Ask(r.Context(), &services.AskRequest{
		NLQuery:    req.NLQuery,
		SchemaHint: req.Schema,
		MaxRows:    req.MaxRows,
	})
	if err != nil {
		h.writeAskError(w, err)
		return
	}

	if format == FormatDataframeCSV {
		csvText, err := services.RenderCSV(result.Result)
		if err != nil {
			h.logger.Error("failed to render CSV", zap.Error(err))
			_ = ErrorResponse(w, http.StatusInternalServerError, "Execution failed", "failed to render CSV")
			return
		}
		_ = WriteJSON(w, http.StatusOK, Text2SQLCSVResponse{
			RunID:     result.RunID.String(),
			SQL:       result.SQL,
			CSV:       csvText,
			Rows:      len(result.Result.Rows),
			Meta:      result.Meta,
			Truncated: result.Result.Truncated,
		})
		return
	}

	_ = WriteJSON(w, http.StatusOK, Text2SQLResponse{
		RunID:     result.RunID.String(),
		SQL:       result.SQL,
		Rows:      rowsToMaps(result.Result),
		Meta:      result.Meta,
		Truncated: result.Result.Truncated,
	})
}

// writeAskError maps gateway failures onto the HTTP contract: rejections are
// client errors surfaced verbatim, everything else is a 500 with redacted
// detail.
func (h *Text2SQLHandler) writeAskError(w http.ResponseWriter, err error) {
	if rejection := sqlgate.AsRejection(err); rejection != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, rejection.Error(), "")
		return
	}
	// Generator and executor failures share one shape; the distinction lives
	// in the audit record.
	_ = ErrorResponse(w, http.StatusInternalServerError, "Execution failed", logging.SanitizeError(err))
}

// GetRun handles GET /api/text2sql/runs/{id}
func (h *Text2SQLHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid run id", "")
		return
	}

	run, err := h.gateway.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "run not found", "")
			return
		}
		h.logger.Error("failed to fetch run", zap.String("run_id", id.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to fetch run", "")
		return
	}

	_ = WriteJSON(w, http.StatusOK, runToResponse(run))
}

// ListRuns handles GET /api/text2sql/runs?limit=
func (h *Text2SQLHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			_ = ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	runs, err := h.gateway.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "failed to list runs", "")
		return
	}

	response := ListRunsResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, run := range runs {
		response.Runs = append(response.Runs, runToResponse(run))
	}

	_ = WriteJSON(w, http.StatusOK, response)
}

func runToResponse(run *models.QueryRun) RunResponse {
	return RunResponse{
		RunID:        run.ID.String(),
		CreatedAt:    run.CreatedAt.UTC().Format(time.RFC3339),
		NLQuery:      run.NLQuery,
		GeneratedSQL: run.GeneratedSQL,
		Status:       string(run.Status),
		Error:        run.Error,
		Meta:         run.Meta,
	}
}

// rowsToMaps converts positional rows to column->value objects. A duplicate
// column name keeps the rightmost value, matching what a JSON object can hold.
func rowsToMaps(result *datasource.QueryResult) []map[string]any {
	rows := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		obj := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		rows = append(rows, obj)
	}
	return rows
}
