package pipeline

import (
	"strconv"
	"strings"
)

// DuplicateReason is the ledger reason attached to deduplicated rows.
const DuplicateReason = "duplicate record"

// RemoveInvalidRecords drops rows that, after cleaning, lack any critical
// field: nil date, nil revenue, nil expenses, or blank currency. All failing
// checks for a row are combined into a single ledger entry referencing the
// original input index. Surviving rows keep their relative order and are
// re-indexed densely.
func RemoveInvalidRecords(records []*Record, tracker *QualityTracker) []*Record {
	kept := make([]*Record, 0, len(records))

	for _, rec := range records {
		var reasons []string

		if rec.Date == nil {
			reasons = append(reasons, "missing "+FieldDate)
		}
		if rec.Revenue == nil {
			reasons = append(reasons, "missing "+FieldRevenue)
		}
		if rec.Expenses == nil {
			reasons = append(reasons, "missing "+FieldExpenses)
		}
		if strings.TrimSpace(rec.Currency) == "" {
			reasons = append(reasons, "missing "+FieldCurrency)
		}

		if len(reasons) > 0 {
			tracker.AddRemoved(rec.OriginalIndex, strings.Join(reasons, ", "))
			continue
		}
		kept = append(kept, rec)
	}

	reindex(kept)
	return kept
}

// RemoveDuplicateRecords drops rows whose every column value, evaluated
// post-cleaning and including passthrough columns, matches an earlier row.
// Keep-first: the first occurrence survives. Ledger entries reference the
// intermediate (post-validity-filter) index space.
func RemoveDuplicateRecords(columns []string, records []*Record, tracker *QualityTracker) []*Record {
	seen := make(map[string]struct{}, len(records))
	kept := make([]*Record, 0, len(records))

	for _, rec := range records {
		key := dedupKey(columns, rec)
		if _, dup := seen[key]; dup {
			tracker.AddDuplicate(rec.Index)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
	}

	reindex(kept)
	return kept
}

// dedupKey builds a canonical comparison key over every input column in
// header order, using cleaned values for the cleaned fields.
func dedupKey(columns []string, rec *Record) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, columnValue(rec, col))
	}
	return strings.Join(parts, "\x1f")
}

func columnValue(rec *Record, col string) string {
	switch col {
	case FieldDate:
		return optionalString(rec.Date)
	case FieldRevenue:
		return optionalFloat(rec.Revenue)
	case FieldExpenses:
		return optionalFloat(rec.Expenses)
	case FieldCurrency:
		return rec.Currency
	case FieldCategory:
		return rec.Category
	default:
		return rec.Extra[col]
	}
}

// optionalString distinguishes a nil value from an empty string so the two
// never collide in a dedup key.
func optionalString(v *string) string {
	if v == nil {
		return "\x00"
	}
	return *v
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "\x00"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func reindex(records []*Record) {
	for i, rec := range records {
		rec.Index = i
	}
}
