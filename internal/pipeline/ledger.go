package pipeline

// RemovedRecord is one ledger entry for a dropped row. Reason is a
// comma-joined list when a row failed more than one validity check; a row
// never produces more than one entry per filtering stage.
type RemovedRecord struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// CleanedRecord is one ledger entry for a field a cleaner textually altered.
// Values are recorded as strings regardless of the field's cleaned type.
type CleanedRecord struct {
	Index    int    `json:"index"`
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// QualityTracker is the append-only audit ledger threaded through every
// pipeline stage. It is created once per run, only ever appended to, and is
// the single source of truth for the quality report.
//
// Validity removals reference original input row indices; duplicate removals
// reference the dense index space left after validity filtering.
type QualityTracker struct {
	TotalRecords int
	Removed      []RemovedRecord
	Duplicates   []RemovedRecord
	Cleaned      []CleanedRecord
}

// NewQualityTracker creates a ledger seeded with the raw input row count.
func NewQualityTracker(totalRecords int) *QualityTracker {
	return &QualityTracker{TotalRecords: totalRecords}
}

// AddRemoved records a validity removal with its (possibly multi-part)
// reason string.
func (t *QualityTracker) AddRemoved(index int, reason string) {
	t.Removed = append(t.Removed, RemovedRecord{Index: index, Reason: reason})
}

// AddDuplicate records a duplicate removal.
func (t *QualityTracker) AddDuplicate(index int) {
	t.Duplicates = append(t.Duplicates, RemovedRecord{Index: index, Reason: DuplicateReason})
}

// AddCleaned records a single field correction.
func (t *QualityTracker) AddCleaned(index int, field, oldValue, newValue string) {
	t.Cleaned = append(t.Cleaned, CleanedRecord{
		Index:    index,
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
	})
}

// DuplicatesRemoved returns the number of rows dropped by deduplication,
// tracked separately because the report surfaces it on its own line.
func (t *QualityTracker) DuplicatesRemoved() int {
	return len(t.Duplicates)
}

// RemovedTotal returns all removals, validity and duplicate combined.
func (t *QualityTracker) RemovedTotal() int {
	return len(t.Removed) + len(t.Duplicates)
}
