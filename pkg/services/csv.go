package services

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
)

// RenderCSV renders an execution result as CSV text: one header row of column
// names, then one row per tuple, no index column. NULLs render as empty
// fields; times use RFC 3339.
func RenderCSV(result *datasource.QueryResult) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write(result.Columns); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatCSVValue(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	return b.String(), nil
}

func formatCSVValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
