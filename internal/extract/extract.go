// Package extract reads raw CSV datasets into pipeline records. Extraction
// is deliberately dumb: every cell stays a string and no value is coerced or
// dropped, so the cleaning pipeline sees exactly what the file contained.
package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vpenkov/finclean/internal/pipeline"
)

// RequiredColumns are the header columns a dataset must carry to be
// cleanable. Any further columns pass through untouched.
var RequiredColumns = []string{
	pipeline.FieldDate,
	pipeline.FieldRevenue,
	pipeline.FieldExpenses,
	pipeline.FieldCurrency,
	pipeline.FieldCategory,
}

// SchemaError reports required columns missing from a dataset header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// FromFile reads a CSV dataset from disk.
func FromFile(path string) ([]string, []*pipeline.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("FromFile: opening %q: %w", path, err)
	}
	defer f.Close()

	columns, records, err := FromReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("FromFile: %q: %w", path, err)
	}
	return columns, records, nil
}

// FromReader reads a CSV dataset. It returns the header columns in file
// order and one record per data row. The header must contain every required
// column; a *SchemaError names the ones absent. A header-only file yields an
// empty record set, not an error.
func FromReader(r io.Reader) ([]string, []*pipeline.Record, error) {
	reader := csv.NewReader(r)
	// Ragged rows are dirty data, not extraction failures; short rows read
	// as empty cells and the pipeline decides what to do with them.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("FromReader: dataset is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("FromReader: reading header: %w", err)
	}

	columns := make([]string, len(header))
	position := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		columns[i] = col
		position[col] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := position[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Missing: missing}
	}

	var records []*pipeline.Record
	for index := 0; ; index++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("FromReader: reading row %d: %w", index, err)
		}
		records = append(records, rowToRecord(columns, row, index))
	}

	return columns, records, nil
}

func rowToRecord(columns []string, row []string, index int) *pipeline.Record {
	rec := &pipeline.Record{
		OriginalIndex: index,
		Index:         index,
		Extra:         make(map[string]string),
	}

	for i, col := range columns {
		var value string
		if i < len(row) {
			value = row[i]
		}
		switch col {
		case pipeline.FieldDate:
			rec.RawDate = value
		case pipeline.FieldRevenue:
			rec.RawRevenue = value
		case pipeline.FieldExpenses:
			rec.RawExpenses = value
		case pipeline.FieldCurrency:
			rec.Currency = value
		case pipeline.FieldCategory:
			rec.Category = value
		default:
			rec.Extra[col] = value
		}
	}
	return rec
}
