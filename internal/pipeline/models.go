// Package pipeline implements the multi-stage cleaning transform for dirty
// financial records: per-field repair, row validity and duplicate filtering,
// currency conversion, profit computation, and the quality ledger that
// accounts for every correction and removal along the way.
package pipeline

// Names of the cleaned fields as they appear in ledger entries and removal
// reasons.
const (
	FieldDate     = "date"
	FieldRevenue  = "revenue"
	FieldExpenses = "expenses"
	FieldCurrency = "currency"
	FieldCategory = "category"
)

// Record is one transaction row as it moves through the pipeline. Raw cell
// values arrive as strings; cleaners populate the typed fields, with nil
// marking a value that could not be recovered. Columns not known to the
// pipeline pass through in Extra and still participate in duplicate
// comparison.
type Record struct {
	// OriginalIndex is the row's position in the raw input. Ledger entries
	// for cleaning and validity removal always reference this index.
	OriginalIndex int

	// Index is the row's position in the current row set. It is
	// re-assigned to a dense sequence after each filtering stage; duplicate
	// removals reference this intermediate index.
	Index int

	RawDate     string
	RawRevenue  string
	RawExpenses string

	Date     *string  // ISO YYYY-MM-DD after cleaning, nil when unparseable
	Revenue  *float64 // nil when missing or unparseable
	Expenses *float64 // nil when missing or unparseable

	Currency string // checked as-is, never cleaned
	Category string // replaced in place by the category cleaner

	// Extra holds passthrough columns (company_id and anything else the
	// input carries beyond the required set), keyed by column name.
	Extra map[string]string

	// Conversion stage outputs.
	OriginalCurrency string
	RevenueBGN       *float64
	ExpensesBGN      *float64
	ProfitBGN        *float64
}

// CompanyID returns the passthrough company identifier, or "" when the
// input had no such column.
func (r *Record) CompanyID() string {
	if r.Extra == nil {
		return ""
	}
	return r.Extra["company_id"]
}
