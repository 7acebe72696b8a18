// Package bigquery defines the shared row types and repository interfaces
// for the cleaning results warehouse.
package bigquery

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/vpenkov/finclean/internal/pipeline"
)

// ResultRepository provides an interface for persisting cleaning runs and
// their output records.
type ResultRepository interface {
	// StartCleaningRun inserts a new run with status=RUNNING and returns the run_id.
	StartCleaningRun(ctx context.Context, sourceURI string) (string, error)

	// MarkCleaningRunFailed sets status=FAILED, finished_ts and error_message for a run.
	MarkCleaningRunFailed(ctx context.Context, runID string, runErr error)

	// MarkCleaningRunSucceeded sets status=SUCCESS, finished_ts and the run's quality counters.
	MarkCleaningRunSucceeded(ctx context.Context, runID string, report *pipeline.QualityReport) error

	// InsertCleanRecords inserts a batch of cleaned records.
	InsertCleanRecords(ctx context.Context, rows []*CleanRecordRow) error

	// ListCleaningRuns retrieves the most recent runs, newest first.
	ListCleaningRuns(ctx context.Context, limit int) ([]*CleaningRunRow, error)
}

// CleaningRunRow represents one cleaning run in BigQuery.
type CleaningRunRow struct {
	RunID     string `bigquery:"run_id"`     // REQUIRED
	SourceURI string `bigquery:"source_uri"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	TotalRecords   bigquery.NullInt64 `bigquery:"total_records"`   // NULLABLE
	RemovedRecords bigquery.NullInt64 `bigquery:"removed_records"` // NULLABLE
	CleanedRecords bigquery.NullInt64 `bigquery:"cleaned_records"` // NULLABLE
	FinalRecords   bigquery.NullInt64 `bigquery:"final_records"`   // NULLABLE

	QualityRate bigquery.NullFloat64 `bigquery:"quality_rate"` // NULLABLE
}

// CleanRecordRow represents one cleaned output record in BigQuery.
type CleanRecordRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	RecordDate civil.Date `bigquery:"record_date"` // REQUIRED
	CompanyID  string     `bigquery:"company_id"`  // NULLABLE

	RevenueBGN  bigquery.NullFloat64 `bigquery:"revenue_bgn"`  // NULLABLE
	ExpensesBGN bigquery.NullFloat64 `bigquery:"expenses_bgn"` // NULLABLE
	ProfitBGN   bigquery.NullFloat64 `bigquery:"profit_bgn"`   // NULLABLE

	OriginalCurrency string `bigquery:"original_currency"` // NULLABLE
	Category         string `bigquery:"category"`          // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
