package bigquery

import (
	"testing"

	"github.com/vpenkov/finclean/internal/pipeline"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestRowsFromRecords(t *testing.T) {
	records := []*pipeline.Record{
		{
			Date:             strPtr("2024-01-15"),
			Extra:            map[string]string{"company_id": "C001"},
			RevenueBGN:       floatPtr(180000),
			ExpensesBGN:      floatPtr(90000),
			ProfitBGN:        floatPtr(90000),
			OriginalCurrency: "USD",
			Category:         "Sales",
		},
	}

	rows, err := RowsFromRecords("run-1", records)
	if err != nil {
		t.Fatalf("RowsFromRecords: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", row.RunID)
	}
	if got := row.RecordDate.String(); got != "2024-01-15" {
		t.Errorf("RecordDate = %q, want 2024-01-15", got)
	}
	if row.CompanyID != "C001" || row.Category != "Sales" || row.OriginalCurrency != "USD" {
		t.Errorf("row = %+v", row)
	}
	if !row.RevenueBGN.Valid || row.RevenueBGN.Float64 != 180000 {
		t.Errorf("RevenueBGN = %+v, want 180000", row.RevenueBGN)
	}
	if row.CreatedTS.IsZero() {
		t.Error("CreatedTS must be set")
	}
}

func TestRowsFromRecords_MissingDate(t *testing.T) {
	if _, err := RowsFromRecords("run-1", []*pipeline.Record{{}}); err == nil {
		t.Error("expected error for record with no date")
	}
}

func TestNullFloat(t *testing.T) {
	if got := nullFloat(nil); got.Valid {
		t.Errorf("nullFloat(nil) = %+v, want invalid", got)
	}
	if got := nullFloat(floatPtr(1.5)); !got.Valid || got.Float64 != 1.5 {
		t.Errorf("nullFloat(1.5) = %+v", got)
	}
}
