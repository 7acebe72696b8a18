package pipeline

import (
	"sort"
	"time"
)

// ReasonCount is one row of the removal-reason breakdown.
type ReasonCount struct {
	Reason string
	Count  int
}

// FieldCount is one row of the cleaned-field breakdown.
type FieldCount struct {
	Field string
	Count int
}

// QualityReport is the summarized, read-only view of the ledger produced
// once the pipeline has finished.
type QualityReport struct {
	GeneratedAt time.Time

	TotalRecords      int
	RemovedRecords    int // validity + duplicate removals combined
	CleanedRecords    int
	DuplicatesRemoved int
	FinalRecords      int

	// QualityRate is FinalRecords / TotalRecords, in [0, 1]. Zero input
	// rows yield a rate of 0.
	QualityRate float64

	// Breakdowns are sorted by descending frequency; ties keep first-seen
	// order.
	RemovalReasons []ReasonCount
	CleanedFields  []FieldCount

	// SampleCorrections is a capped sample of individual corrections;
	// OverflowCorrections counts the remainder not shown.
	SampleCorrections   []CleanedRecord
	OverflowCorrections int
}

// Report summarizes the ledger for a finished run. finalCount is the number
// of rows that survived every stage; sampleCap bounds the individual
// corrections included.
func (t *QualityTracker) Report(finalCount, sampleCap int) *QualityReport {
	report := &QualityReport{
		GeneratedAt:       time.Now(),
		TotalRecords:      t.TotalRecords,
		RemovedRecords:    t.RemovedTotal(),
		CleanedRecords:    len(t.Cleaned),
		DuplicatesRemoved: t.DuplicatesRemoved(),
		FinalRecords:      finalCount,
	}

	if t.TotalRecords > 0 {
		report.QualityRate = float64(finalCount) / float64(t.TotalRecords)
	}

	report.RemovalReasons = countReasons(t.Removed, t.Duplicates)
	report.CleanedFields = countFields(t.Cleaned)

	if sampleCap > len(t.Cleaned) {
		sampleCap = len(t.Cleaned)
	}
	report.SampleCorrections = append([]CleanedRecord(nil), t.Cleaned[:sampleCap]...)
	report.OverflowCorrections = len(t.Cleaned) - sampleCap

	return report
}

func countReasons(groups ...[]RemovedRecord) []ReasonCount {
	index := make(map[string]int)
	var counts []ReasonCount

	for _, group := range groups {
		for _, rec := range group {
			if i, ok := index[rec.Reason]; ok {
				counts[i].Count++
				continue
			}
			index[rec.Reason] = len(counts)
			counts = append(counts, ReasonCount{Reason: rec.Reason, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

func countFields(cleaned []CleanedRecord) []FieldCount {
	index := make(map[string]int)
	var counts []FieldCount

	for _, rec := range cleaned {
		if i, ok := index[rec.Field]; ok {
			counts[i].Count++
			continue
		}
		index[rec.Field] = len(counts)
		counts = append(counts, FieldCount{Field: rec.Field, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}
