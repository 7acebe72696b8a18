package pipeline

import (
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// NumericCleaner repairs and parses raw monetary cells. It applies to
// revenue and expenses independently; only expenses are sign-corrected.
type NumericCleaner struct {
	log zerolog.Logger
}

// NewNumericCleaner creates a numeric cleaner logging parse failures to log.
func NewNumericCleaner(log zerolog.Logger) *NumericCleaner {
	return &NumericCleaner{log: log}
}

// Clean parses one raw numeric cell for the named field. Empty, whitespace
// and "N/A" cells become nil without a ledger entry.
//
// Multi-separator repair: a value with more than one period ("312.927.93")
// is rebuilt with everything before the last period as the integer part.
// The repair is recorded in the ledger even if the repaired string still
// fails to parse afterwards.
//
// Negative expenses are flipped to their absolute value and recorded as a
// correction; negative revenue passes through untouched. Values are not
// range-checked.
func (c *NumericCleaner) Clean(raw string, index int, field string, tracker *QualityTracker) *float64 {
	if strings.TrimSpace(raw) == "" || strings.ToUpper(raw) == "N/A" {
		return nil
	}

	value := raw
	if parts := strings.Split(value, "."); len(parts) > 2 {
		value = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
		tracker.AddCleaned(index, field, raw, value)
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		c.log.Warn().
			Int("index", index).
			Str("field", field).
			Str("value", value).
			Msg("could not parse numeric value")
		return nil
	}

	if field == FieldExpenses && parsed < 0 {
		tracker.AddCleaned(index, field, formatAmount(parsed), formatAmount(-parsed))
		parsed = -parsed
	}

	return &parsed
}

// formatAmount renders a float the way ledger entries store numbers.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
