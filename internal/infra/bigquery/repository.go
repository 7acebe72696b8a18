package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/vpenkov/finclean/internal/bigquery"
	"github.com/vpenkov/finclean/internal/pipeline"
)

// Re-export the interface from the shared package for convenience.
type ResultRepository = bq.ResultRepository

// BigQueryResultRepository is the concrete implementation of
// ResultRepository that interacts with BigQuery. It holds a shared client to
// avoid creating a new connection for each operation.
type BigQueryResultRepository struct {
	client *bigquery.Client
}

// NewBigQueryResultRepository creates a new instance of
// BigQueryResultRepository with a shared BigQuery client.
func NewBigQueryResultRepository(ctx context.Context) (*BigQueryResultRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryResultRepository: creating client: %w", err)
	}
	return &BigQueryResultRepository{
		client: client,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryResultRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartCleaningRun delegates to StartCleaningRunWithClient with the shared client.
func (r *BigQueryResultRepository) StartCleaningRun(ctx context.Context, sourceURI string) (string, error) {
	return StartCleaningRunWithClient(ctx, r.client, sourceURI)
}

// MarkCleaningRunFailed delegates to MarkCleaningRunFailedWithClient with the shared client.
func (r *BigQueryResultRepository) MarkCleaningRunFailed(ctx context.Context, runID string, runErr error) {
	MarkCleaningRunFailedWithClient(ctx, r.client, runID, runErr)
}

// MarkCleaningRunSucceeded delegates to MarkCleaningRunSucceededWithClient with the shared client.
func (r *BigQueryResultRepository) MarkCleaningRunSucceeded(ctx context.Context, runID string, report *pipeline.QualityReport) error {
	return MarkCleaningRunSucceededWithClient(ctx, r.client, runID, report)
}

// InsertCleanRecords delegates to InsertCleanRecordsWithClient with the shared client.
func (r *BigQueryResultRepository) InsertCleanRecords(ctx context.Context, rows []*bq.CleanRecordRow) error {
	return InsertCleanRecordsWithClient(ctx, r.client, rows)
}

// ListCleaningRuns delegates to ListCleaningRunsWithClient with the shared client.
func (r *BigQueryResultRepository) ListCleaningRuns(ctx context.Context, limit int) ([]*bq.CleaningRunRow, error) {
	return ListCleaningRunsWithClient(ctx, r.client, limit)
}
