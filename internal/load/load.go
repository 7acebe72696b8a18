// Package load serializes the output artifacts of a cleaning run: the
// cleaned dataset as JSON and the human-readable quality report.
package load

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vpenkov/finclean/internal/pipeline"
)

// OutputRecord is one cleaned row in its external JSON shape. Monetary
// fields are pointers so an irrecoverable value serializes as null rather
// than a fake zero.
type OutputRecord struct {
	Date             *string  `json:"date"`
	CompanyID        string   `json:"company_id"`
	RevenueBGN       *float64 `json:"revenue_bgn"`
	ExpensesBGN      *float64 `json:"expenses_bgn"`
	ProfitBGN        *float64 `json:"profit_bgn"`
	OriginalCurrency string   `json:"original_currency"`
	Category         string   `json:"category"`
}

// OutputRecords converts pipeline records to their external shape,
// preserving order.
func OutputRecords(records []*pipeline.Record) []OutputRecord {
	out := make([]OutputRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, OutputRecord{
			Date:             rec.Date,
			CompanyID:        rec.CompanyID(),
			RevenueBGN:       rec.RevenueBGN,
			ExpensesBGN:      rec.ExpensesBGN,
			ProfitBGN:        rec.ProfitBGN,
			OriginalCurrency: rec.OriginalCurrency,
			Category:         rec.Category,
		})
	}
	return out
}

// MarshalJSON renders the cleaned dataset as indented JSON.
func MarshalJSON(records []*pipeline.Record) ([]byte, error) {
	data, err := json.MarshalIndent(OutputRecords(records), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("MarshalJSON: %w", err)
	}
	return data, nil
}

// WriteJSON writes the cleaned dataset to path.
func WriteJSON(path string, records []*pipeline.Record) error {
	data, err := MarshalJSON(records)
	if err != nil {
		return fmt.Errorf("WriteJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("WriteJSON: writing %q: %w", path, err)
	}
	return nil
}

const reportRule = 80

// RenderReport writes the plain-text quality report to w.
func RenderReport(w io.Writer, report *pipeline.QualityReport) error {
	var b strings.Builder
	heavy := strings.Repeat("=", reportRule)
	light := strings.Repeat("-", reportRule)

	b.WriteString(heavy + "\n")
	b.WriteString("DATA QUALITY REPORT\n")
	b.WriteString(heavy + "\n\n")

	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("SUMMARY\n")
	b.WriteString(light + "\n")
	fmt.Fprintf(&b, "Total records processed:     %d\n", report.TotalRecords)
	fmt.Fprintf(&b, "Records removed:             %d\n", report.RemovedRecords)
	fmt.Fprintf(&b, "Records cleaned/corrected:   %d\n", report.CleanedRecords)
	fmt.Fprintf(&b, "Duplicate records removed:   %d\n", report.DuplicatesRemoved)
	fmt.Fprintf(&b, "Final valid records:         %d\n", report.FinalRecords)
	fmt.Fprintf(&b, "Data quality rate:           %.2f%%\n\n", report.QualityRate*100)

	if len(report.RemovalReasons) > 0 {
		b.WriteString("REMOVED RECORDS\n")
		b.WriteString(light + "\n")
		for _, rc := range report.RemovalReasons {
			fmt.Fprintf(&b, "  %s: %d records\n", rc.Reason, rc.Count)
		}
		b.WriteString("\n")
	}

	if report.CleanedRecords > 0 {
		b.WriteString("CLEANED/CORRECTED RECORDS\n")
		b.WriteString(light + "\n")
		for _, fc := range report.CleanedFields {
			fmt.Fprintf(&b, "  %s: %d corrections\n", fc.Field, fc.Count)
		}
		b.WriteString("\n")

		b.WriteString("Sample Corrections:\n")
		for _, c := range report.SampleCorrections {
			fmt.Fprintf(&b, "  Row %d - %s: '%s' -> '%s'\n", c.Index, c.Field, c.OldValue, c.NewValue)
		}
		if report.OverflowCorrections > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", report.OverflowCorrections)
		}
		b.WriteString("\n")
	}

	b.WriteString(heavy + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(heavy + "\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("RenderReport: %w", err)
	}
	return nil
}

// WriteReport writes the plain-text quality report to path.
func WriteReport(path string, report *pipeline.QualityReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteReport: creating %q: %w", path, err)
	}
	defer f.Close()

	if err := RenderReport(f, report); err != nil {
		return fmt.Errorf("WriteReport: %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("WriteReport: closing %q: %w", path, err)
	}
	return nil
}
