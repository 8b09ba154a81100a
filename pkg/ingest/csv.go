package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Source CSV filenames, fixed by the dataset.
var csvFilenames = map[string]string{
	"categories":    "categories.csv",
	"customers":     "customers.csv",
	"employees":     "employees.csv",
	"order_details": "order_details.csv",
	"orders":        "orders.csv",
	"products":      "products.csv",
	"shippers":      "shippers.csv",
}

// table is one parsed CSV file: a header index plus raw row cells. Cells that
// normalize to NULL are already nil.
type table struct {
	header map[string]int
	rows   [][]*string
	nulls  int
}

// cell returns the named column of a row, or nil when absent or NULL.
func (t *table) cell(row []*string, column string) *string {
	idx, ok := t.header[column]
	if !ok || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func readTableFile(csvRoot, filename string) (*table, error) {
	path := filepath.Join(csvRoot, filename)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("CSV not found: %s: %w", path, err)
	}
	defer f.Close()
	return readTable(f)
}

// readTable parses CSV content. Files in this dataset are ISO-8859-1; bytes
// that are not valid UTF-8 are decoded as Latin-1.
func readTable(r io.Reader) (*table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	text := string(raw)
	if !utf8.Valid(raw) {
		text = decodeLatin1(raw)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV has no header row")
	}

	t := &table{header: make(map[string]int, len(records[0]))}
	for i, name := range records[0] {
		t.header[strings.TrimSpace(name)] = i
	}

	for _, record := range records[1:] {
		row := make([]*string, len(record))
		for i, cellText := range record {
			if v := normalizeCell(cellText); v != nil {
				row[i] = v
			} else {
				t.nulls++
			}
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

// normalizeCell maps the dataset's NULL spellings to nil.
func normalizeCell(s string) *string {
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "", "NULL", "NaN":
		return nil
	}
	return &trimmed
}

func decodeLatin1(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
