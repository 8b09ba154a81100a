package services

import (
	"testing"
	"time"

	"github.com/tradewind-io/tradewind-gateway/pkg/adapters/datasource"
)

func TestRenderCSV(t *testing.T) {
	result := &datasource.QueryResult{
		Columns: []string{"companyName", "freight"},
		Rows: [][]any{
			{"Speedy Express", 32.38},
			{"United Package", nil},
		},
	}

	got, err := RenderCSV(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "companyName,freight\nSpeedy Express,32.38\nUnited Package,\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderCSV_QuotesEmbeddedCommas(t *testing.T) {
	result := &datasource.QueryResult{
		Columns: []string{"quantityPerUnit"},
		Rows:    [][]any{{"10 boxes, 20 bags"}},
	}

	got, err := RenderCSV(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "quantityPerUnit\n\"10 boxes, 20 bags\"\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderCSV_EmptyResult(t *testing.T) {
	result := &datasource.QueryResult{
		Columns: []string{"a", "b"},
		Rows:    [][]any{},
	}

	got, err := RenderCSV(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a,b\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormatCSVValue_Time(t *testing.T) {
	ts := time.Date(1997, 7, 4, 0, 0, 0, 0, time.UTC)
	if got := formatCSVValue(ts); got != "1997-07-04T00:00:00Z" {
		t.Errorf("got %q", got)
	}
}
