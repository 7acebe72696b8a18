package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	bq "github.com/vpenkov/finclean/internal/bigquery"
	"github.com/vpenkov/finclean/internal/logger"
	"github.com/vpenkov/finclean/internal/pipeline"
)

const (
	projectID         = "finclean-prod"
	datasetID         = "finclean"
	cleaningRunsTable = "cleaning_runs"
)

// StartCleaningRun inserts a new row into finclean.cleaning_runs with
// status=RUNNING and returns the generated run_id.
func StartCleaningRun(ctx context.Context, sourceURI string) (string, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("StartCleaningRun: bigquery client: %w", err)
	}
	defer client.Close()

	return StartCleaningRunWithClient(ctx, client, sourceURI)
}

// StartCleaningRunWithClient inserts a new row into finclean.cleaning_runs
// with status=RUNNING using the provided BigQuery client.
func StartCleaningRunWithClient(ctx context.Context, client *bigquery.Client, sourceURI string) (string, error) {
	runID := uuid.NewString()
	started := time.Now()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			run_id,
			source_uri,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@source_uri,
			@started_ts,
			@status
		)
	`, datasetID, cleaningRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "source_uri", Value: sourceURI},
		{Name: "started_ts", Value: started},
		{Name: "status", Value: "RUNNING"},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("StartCleaningRun: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("StartCleaningRun: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return "", fmt.Errorf("StartCleaningRun: job error: %w", err)
	}

	return runID, nil
}

// MarkCleaningRunFailed sets status=FAILED, finished_ts and error_message.
func MarkCleaningRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkCleaningRunFailed: bigquery client error")
		return
	}
	defer client.Close()

	MarkCleaningRunFailedWithClient(ctx, client, runID, runErr)
}

// MarkCleaningRunFailedWithClient sets status=FAILED, finished_ts and
// error_message using the provided BigQuery client. Failures here are logged
// rather than returned: the run already failed and the original error must
// not be displaced.
func MarkCleaningRunFailedWithClient(ctx context.Context, client *bigquery.Client, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, datasetID, cleaningRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkCleaningRunFailed: running update query")
		return
	}

	status, err := job.Wait(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkCleaningRunFailed: waiting for job")
		return
	}
	if err := status.Err(); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkCleaningRunFailed: job completed with error")
	}
}

// MarkCleaningRunSucceeded sets status=SUCCESS, finished_ts and the run's
// quality counters.
func MarkCleaningRunSucceeded(ctx context.Context, runID string, report *pipeline.QualityReport) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("MarkCleaningRunSucceeded: bigquery client: %w", err)
	}
	defer client.Close()

	return MarkCleaningRunSucceededWithClient(ctx, client, runID, report)
}

// MarkCleaningRunSucceededWithClient sets status=SUCCESS, finished_ts and
// the run's quality counters using the provided BigQuery client.
func MarkCleaningRunSucceededWithClient(ctx context.Context, client *bigquery.Client, runID string, report *pipeline.QualityReport) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    total_records = @total_records,
		    removed_records = @removed_records,
		    cleaned_records = @cleaned_records,
		    final_records = @final_records,
		    quality_rate = @quality_rate
		WHERE run_id = @run_id
	`, datasetID, cleaningRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "total_records", Value: report.TotalRecords},
		{Name: "removed_records", Value: report.RemovedRecords},
		{Name: "cleaned_records", Value: report.CleanedRecords},
		{Name: "final_records", Value: report.FinalRecords},
		{Name: "quality_rate", Value: report.QualityRate},
		{Name: "run_id", Value: runID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkCleaningRunSucceeded: running update query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkCleaningRunSucceeded: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("MarkCleaningRunSucceeded: job error: %w", err)
	}

	return nil
}

// ListCleaningRuns retrieves the most recent cleaning runs, newest first.
func ListCleaningRuns(ctx context.Context, limit int) ([]*bq.CleaningRunRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListCleaningRuns: bigquery client: %w", err)
	}
	defer client.Close()

	return ListCleaningRunsWithClient(ctx, client, limit)
}

// ListCleaningRunsWithClient retrieves the most recent cleaning runs using
// the provided BigQuery client.
func ListCleaningRunsWithClient(ctx context.Context, client *bigquery.Client, limit int) ([]*bq.CleaningRunRow, error) {
	if limit <= 0 {
		limit = 50
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			source_uri,
			started_ts,
			finished_ts,
			status,
			error_message,
			total_records,
			removed_records,
			cleaned_records,
			final_records,
			quality_rate
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, datasetID, cleaningRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCleaningRuns: query read: %w", err)
	}

	var rows []*bq.CleaningRunRow
	for {
		var r bq.CleaningRunRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCleaningRuns: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
