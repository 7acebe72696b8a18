package pipeline

import (
	"strings"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
)

const isoDateFormat = "2006-01-02"

// DateCleaner standardizes raw date strings to ISO YYYY-MM-DD. Ambiguous
// numeric dates (1/2/2024) resolve month-first per US convention; this is a
// fixed policy, not inferred from the data.
type DateCleaner struct {
	log zerolog.Logger
}

// NewDateCleaner creates a date cleaner logging parse failures to log.
func NewDateCleaner(log zerolog.Logger) *DateCleaner {
	return &DateCleaner{log: log}
}

// Clean parses one raw date cell. It returns nil for empty or unparseable
// input; an unparseable value is logged but produces no ledger entry, the
// row surfaces later as "missing date" at the validity filter.
func (c *DateCleaner) Clean(raw string, index int, tracker *QualityTracker) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	// Trailing periods are a known data-entry artifact.
	trimmed = strings.TrimRight(trimmed, ".")

	parsed, err := dateparse.ParseAny(trimmed)
	if err != nil {
		c.log.Warn().
			Int("index", index).
			Str("value", trimmed).
			Err(err).
			Msg("could not parse date")
		return nil
	}

	iso := parsed.Format(isoDateFormat)
	if iso != trimmed {
		tracker.AddCleaned(index, FieldDate, trimmed, iso)
	}
	return &iso
}
